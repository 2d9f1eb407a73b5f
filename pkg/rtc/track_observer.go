package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
)

// TrackObserver keeps the enabled flag and the ready state of a local track in sync
// with its foreign counterpart. Both associations are fixed for the lifetime of the observer.
type TrackObserver struct {
	foreign  ForeignTrack
	track    *mediastream.Track
	executor mainthread.Executor
}

func NewTrackObserver(executor mainthread.Executor, foreign ForeignTrack, track *mediastream.Track) *TrackObserver {
	return &TrackObserver{
		foreign:  foreign,
		track:    track,
		executor: executor,
	}
}

func (o *TrackObserver) ForeignTrack() ForeignTrack {
	return o.foreign
}

func (o *TrackObserver) Track() *mediastream.Track {
	return o.track
}

// Called by the WebRTC stack on an arbitrary goroutine.
func (o *TrackObserver) OnChanged() {
	o.executor.Post(o.Mirror)
}

// Copies the state of the foreign track into the local one. Must run on the designated thread.
// Enabled and state are the only properties of a foreign track that may change.
func (o *TrackObserver) Mirror() {
	o.track.SetEnabled(o.foreign.Enabled())
	o.track.SetReadyState(ReadyStateFromTrackState(o.foreign.State()))
}

// Starts listening to the foreign track.
func (o *TrackObserver) Attach() {
	o.foreign.RegisterObserver(o)
}

// Stops listening to the foreign track. Must be called before the observer is dropped.
func (o *TrackObserver) Detach() {
	o.foreign.UnregisterObserver(o)
}

// Creates a local track that mirrors the given foreign one and an attached observer binding them.
func newObservedTrack(executor mainthread.Executor, foreign ForeignTrack) *TrackObserver {
	track := mediastream.NewTrack(foreign.ID(), foreign.Kind())
	observer := NewTrackObserver(executor, foreign, track)

	// The foreign track may be disabled or ended already.
	observer.Mirror()
	observer.Attach()

	return observer
}
