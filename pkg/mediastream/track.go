package mediastream

import (
	"sync"

	"github.com/pion/webrtc/v3"
)

// Kind of a media track.
type Kind int

const (
	KindAudio Kind = iota
	KindVideo
)

// Kinds lists every track kind in a stable order.
var Kinds = []Kind{KindAudio, KindVideo}

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Converts pion's codec type into the track kind. The second value is `false`
// for codec types that do not describe a media track.
func KindFromCodecType(codecType webrtc.RTPCodecType) (Kind, bool) {
	switch codecType {
	case webrtc.RTPCodecTypeAudio:
		return KindAudio, true
	case webrtc.RTPCodecTypeVideo:
		return KindVideo, true
	default:
		return 0, false
	}
}

// The ready state of a track as seen by the engine.
type ReadyState int

const (
	ReadyStateLive ReadyState = iota
	ReadyStateMuted
	ReadyStateEnded
)

func (s ReadyState) String() string {
	switch s {
	case ReadyStateLive:
		return "live"
	case ReadyStateMuted:
		return "muted"
	case ReadyStateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Track is the engine's record of a single remote media track.
// The record is written on the designated thread only, the lock is there
// so that readers on other goroutines never see a half-written update.
type Track struct {
	id   string
	kind Kind

	mutex      sync.RWMutex
	enabled    bool
	readyState ReadyState
}

// Creates a new enabled and live track.
func NewTrack(id string, kind Kind) *Track {
	return &Track{
		id:         id,
		kind:       kind,
		enabled:    true,
		readyState: ReadyStateLive,
	}
}

func (t *Track) ID() string {
	return t.id
}

func (t *Track) Kind() Kind {
	return t.kind
}

func (t *Track) Enabled() bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.enabled
}

func (t *Track) SetEnabled(enabled bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.enabled = enabled
}

func (t *Track) ReadyState() ReadyState {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.readyState
}

func (t *Track) SetReadyState(state ReadyState) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.readyState = state
}
