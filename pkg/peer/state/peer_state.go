package state

import (
	"sync"

	"golang.org/x/exp/maps"
)

// A data channel that has been created locally.
type DataChannel interface {
	Label() string
	Close() error
}

// PeerState holds the remote streams of a peer connection by their id and the data
// channels created locally. The streams are generic so that the package does not
// depend on the concrete stream type.
type PeerState[Stream any] struct {
	mutex        sync.Mutex
	streams      map[string]Stream
	dataChannels map[string]DataChannel
}

func NewPeerState[Stream any]() *PeerState[Stream] {
	return &PeerState[Stream]{
		streams:      make(map[string]Stream),
		dataChannels: make(map[string]DataChannel),
	}
}

// Runs `f` with the lock held. Stream additions and removals that are announced from `f`
// reach the observer in the same order as they have been applied to the state.
func (p *PeerState[Stream]) UpdateStreams(f func(streams map[string]Stream)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	f(p.streams)
}

// Removes every stream from the state and returns them.
func (p *PeerState[Stream]) TakeStreams() []Stream {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	streams := maps.Values(p.streams)
	p.streams = make(map[string]Stream)
	return streams
}

func (p *PeerState[Stream]) AddDataChannel(dc DataChannel) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.dataChannels[dc.Label()] = dc
}

// Removes the channel unless it has been replaced by another channel with the same label.
func (p *PeerState[Stream]) RemoveDataChannel(dc DataChannel) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.dataChannels[dc.Label()] == dc {
		delete(p.dataChannels, dc.Label())
	}
}

// Removes every data channel from the state and returns them.
func (p *PeerState[Stream]) TakeDataChannels() []DataChannel {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	dataChannels := maps.Values(p.dataChannels)
	p.dataChannels = make(map[string]DataChannel)
	return dataChannels
}
