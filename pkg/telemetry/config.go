package telemetry

type Config struct {
	// Use OTLP exporter. Has precedence over the Jaeger configuration.
	OTLP OTLP `yaml:"otlp"`
	// The URL to the Jaeger collector.
	JaegerURL string `yaml:"jaegerUrl"`
	// The service name to report, defaults to `rtcbridge`.
	Package string `yaml:"package"`
	// ID of the service instance. A random one is generated if empty.
	ID string `yaml:"id"`
}

type OTLP struct {
	// The endpoint of the OTLP collector. Must not contain any URL path.
	Host string `yaml:"host"`
	// Use HTTPS when connecting to the OTLP endpoint, HTTP otherwise.
	Secure bool `yaml:"secure"`
}

// Whether any exporter is configured.
func (c Config) Enabled() bool {
	return c.OTLP.Host != "" || c.JaegerURL != ""
}
