package webrtc_ext

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v3"
)

var ErrInvalidICEServer = errors.New("invalid ICE server")

// Configuration of the WebRTC API used by the bridge.
type Config struct {
	// Enable simulcast extension.
	EnableSimulcast bool `yaml:"simulcast"`
	// Public IP addresses of the host, announced as host candidates (1:1 NAT).
	PublicIPs []string `yaml:"ipAddresses"`
	// STUN and TURN servers passed to every peer connection.
	ICEServers []ICEServer `yaml:"iceServers"`
}

type ICEServer struct {
	URLs       []string `yaml:"urls"`
	Username   string   `yaml:"username"`
	Credential string   `yaml:"credential"`
}

func (c *Config) Validate() error {
	for i, server := range c.ICEServers {
		if len(server.URLs) == 0 {
			return fmt.Errorf("%w: server %d has no URLs", ErrInvalidICEServer, i)
		}
	}

	return nil
}

// The peer connection configuration derived from the config.
func (c *Config) Configuration() webrtc.Configuration {
	configuration := webrtc.Configuration{}
	for _, server := range c.ICEServers {
		configuration.ICEServers = append(configuration.ICEServers, webrtc.ICEServer{
			URLs:       server.URLs,
			Username:   server.Username,
			Credential: server.Credential,
		})
	}

	return configuration
}
