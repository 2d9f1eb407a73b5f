package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/pion/webrtc/v3"
)

// Observer is registered on foreign (WebRTC stack) objects. The foreign side only
// tells that something changed, the observer has to figure out what.
// OnChanged may be called from any goroutine.
type Observer interface {
	OnChanged()
}

// The state of a track as reported by the WebRTC stack.
type TrackState int

const (
	TrackStateInitializing TrackState = iota
	TrackStateLive
	TrackStateEnded
	TrackStateFailed
)

func (s TrackState) String() string {
	switch s {
	case TrackStateInitializing:
		return "initializing"
	case TrackStateLive:
		return "live"
	case TrackStateEnded:
		return "ended"
	case TrackStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// A live media track owned by the WebRTC stack.
type ForeignTrack interface {
	ID() string
	Kind() mediastream.Kind
	Enabled() bool
	State() TrackState
	RegisterObserver(Observer)
	UnregisterObserver(Observer)
}

// A remote media stream owned by the WebRTC stack. Implementations must be
// comparable (i.e. pointers) since the handles are used as registry keys.
type ForeignStream interface {
	ID() string
	AudioTracks() []ForeignTrack
	VideoTracks() []ForeignTrack
	FindAudioTrack(id string) ForeignTrack
	FindVideoTrack(id string) ForeignTrack
	RegisterObserver(Observer)
	UnregisterObserver(Observer)
}

// A locally gathered ICE candidate. Satisfied by `*webrtc.ICECandidate`.
type ForeignCandidate interface {
	ToJSON() webrtc.ICECandidateInit
}

// A data channel owned by the WebRTC stack. Satisfied by `*webrtc.DataChannel`.
type ForeignDataChannel interface {
	Label() string
	Ordered() bool
	MaxPacketLifeTime() *uint16
	MaxRetransmits() *uint16
	Protocol() string
	Negotiated() bool
	ID() *uint16
	ReadyState() webrtc.DataChannelState
	BufferedAmount() uint64
	SendText(text string) error
	Send(data []byte) error
	Close() error
	OnOpen(f func())
	OnClose(f func())
	OnMessage(f func(msg webrtc.DataChannelMessage))
	OnError(f func(err error))
}

// Tracks of the given kind.
func foreignTracks(stream ForeignStream, kind mediastream.Kind) []ForeignTrack {
	if kind == mediastream.KindVideo {
		return stream.VideoTracks()
	}
	return stream.AudioTracks()
}

// Looks up a track of the given kind by id, `nil` if absent.
func findForeignTrack(stream ForeignStream, kind mediastream.Kind, id string) ForeignTrack {
	if kind == mediastream.KindVideo {
		return stream.FindVideoTrack(id)
	}
	return stream.FindAudioTrack(id)
}
