package webrtc_ext

import (
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/pion/webrtc/v3"
)

type SimulcastLayer int

const (
	SimulcastLayerNone SimulcastLayer = iota
	SimulcastLayerLow
	SimulcastLayerMedium
	SimulcastLayerHigh
)

func RIDToSimulcastLayer(rid string) SimulcastLayer {
	switch rid {
	case "q": // quarter
		return SimulcastLayerLow
	case "h": // half
		return SimulcastLayerMedium
	case "f": // full
		return SimulcastLayerHigh
	default:
		return SimulcastLayerNone
	}
}

func (s SimulcastLayer) String() string {
	switch s {
	case SimulcastLayerLow:
		return "low"
	case SimulcastLayerMedium:
		return "medium"
	case SimulcastLayerHigh:
		return "high"
	default:
		return ""
	}
}

// Basic information about a remote track.
type TrackInfo struct {
	TrackID  string
	StreamID string
	Kind     mediastream.Kind
	Layer    SimulcastLayer
	Codec    webrtc.RTPCodecCapability
}

// The second return value is false if the kind of the track is neither audio nor video.
func TrackInfoFromTrack(track *webrtc.TrackRemote) (TrackInfo, bool) {
	kind, ok := mediastream.KindFromCodecType(track.Kind())
	if !ok {
		return TrackInfo{}, false
	}

	return TrackInfo{
		TrackID:  track.ID(),
		StreamID: track.StreamID(),
		Kind:     kind,
		Layer:    RIDToSimulcastLayer(track.RID()),
		Codec:    track.Codec().RTPCodecCapability,
	}, true
}
