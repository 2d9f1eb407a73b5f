package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/telemetry"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Bridge configuration.
type Config struct {
	// Starting from which level to log stuff.
	LogLevel string `yaml:"log"`
	// WebRTC API configuration.
	WebRTC webrtc_ext.Config `yaml:"webrtc"`
	// How remote streams are mirrored into the engine.
	Bridge Bridge `yaml:"bridge"`
	// Tracing configuration. Tracing is disabled if no exporter is configured.
	Telemetry telemetry.Config `yaml:"telemetry"`
	// Prometheus metrics.
	Metrics Metrics `yaml:"metrics"`
}

type Bridge struct {
	// Mirror video tracks as well, only audio tracks are mirrored otherwise.
	Video bool `yaml:"video"`
	// Remote tracks that deliver no media for this long are reported as disabled. Zero disables the check.
	TrackStallTimeout time.Duration `yaml:"trackStallTimeout"`
	// Constraints applied to the peer connections.
	Constraints mediastream.Constraints `yaml:"constraints"`
}

type Metrics struct {
	// Address to serve `/metrics` on, e.g. `:9090`. Metrics are not served if empty.
	Address string `yaml:"address"`
}

// The track kinds that are mirrored.
func (b Bridge) Kinds() []mediastream.Kind {
	if b.Video {
		return []mediastream.Kind{mediastream.KindAudio, mediastream.KindVideo}
	}

	return []mediastream.Kind{mediastream.KindAudio}
}

// Tries to load a config from the `CONFIG` environment variable.
// If the environment variable is not set, tries to load a config from the
// provided path to the config file (YAML). Returns an error if the config could
// not be loaded.
func LoadConfig(path string) (*Config, error) {
	config, err := LoadConfigFromEnv()
	if err != nil {
		if !errors.Is(err, ErrNoConfigEnvVar) {
			return nil, err
		}

		return LoadConfigFromPath(path)
	}

	return config, nil
}

var (
	// ErrNoConfigEnvVar is returned when the CONFIG environment variable is not set.
	ErrNoConfigEnvVar = errors.New("environment variable not set or invalid")
	ErrInvalidConfig  = errors.New("invalid config values")
)

// Tries to load the config from environment variable (`CONFIG`).
func LoadConfigFromEnv() (*Config, error) {
	configEnv := os.Getenv("CONFIG")
	if configEnv == "" {
		return nil, ErrNoConfigEnvVar
	}

	return LoadConfigFromString(configEnv)
}

// Tries to load a config from the provided path.
func LoadConfigFromPath(path string) (*Config, error) {
	logrus.WithField("path", path).Info("loading config")

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return LoadConfigFromString(string(file))
}

// Load config from the provided string.
// Returns an error if the string is not a valid YAML or the values are invalid.
func LoadConfigFromString(configString string) (*Config, error) {
	logrus.Info("loading config from string")

	var config Config
	if err := yaml.Unmarshal([]byte(configString), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
	}

	if c.Bridge.TrackStallTimeout < 0 {
		return fmt.Errorf("%w: negative track stall timeout", ErrInvalidConfig)
	}

	if err := c.WebRTC.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	return nil
}

// The configured log level, info if not set.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}

	return level
}
