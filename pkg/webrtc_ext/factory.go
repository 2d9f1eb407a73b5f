package webrtc_ext

import (
	"fmt"

	"github.com/pion/webrtc/v3"
)

// Creates the peer connections of the bridge. All of them share one API, so that the
// codecs, interceptors and NAT settings of the config apply to each of them.
type PeerConnectionFactory struct {
	api        *webrtc.API
	iceServers []webrtc.ICEServer
}

func NewPeerConnectionFactory(config Config) (*PeerConnectionFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	api, err := createWebRTCAPI(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebRTC API: %w", err)
	}

	return &PeerConnectionFactory{
		api:        api,
		iceServers: config.Configuration().ICEServers,
	}, nil
}

// Creates a peer connection. A configuration without ICE servers gets the ones of the config.
func (f *PeerConnectionFactory) CreatePeerConnection(configuration webrtc.Configuration) (*webrtc.PeerConnection, error) {
	if len(configuration.ICEServers) == 0 {
		configuration.ICEServers = f.iceServers
	}

	return f.api.NewPeerConnection(configuration)
}
