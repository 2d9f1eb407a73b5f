package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// StreamObserver binds a foreign stream to its local record and keeps the tracks of the
// local record in sync with the foreign ones.
//
// The WebRTC stack only signals that the set of tracks changed, without telling which
// track was added or removed, so the observer compares the track counts and scans the
// track identifiers for the difference.
//
// The per-kind observer lists and the local stream are only touched on the designated
// thread once the observer has been published by the connection observer.
type StreamObserver struct {
	foreign  ForeignStream
	stream   *mediastream.Stream
	executor mainthread.Executor
	logger   *logrus.Entry

	// Kinds that are mirrored at all, tracks of other kinds are ignored.
	kinds []mediastream.Kind
	// Track observers per kind, in the order in which they were registered.
	trackObservers map[mediastream.Kind][]*TrackObserver
	// Set once the track observers are gone, late reconciliations are ignored then.
	detached bool
}

func NewStreamObserver(
	executor mainthread.Executor,
	foreign ForeignStream,
	stream *mediastream.Stream,
	trackObservers map[mediastream.Kind][]*TrackObserver,
	kinds []mediastream.Kind,
	logger *logrus.Entry,
) *StreamObserver {
	observers := make(map[mediastream.Kind][]*TrackObserver)
	for kind, list := range trackObservers {
		observers[kind] = slices.Clone(list)
	}

	return &StreamObserver{
		foreign:        foreign,
		stream:         stream,
		executor:       executor,
		logger:         logger,
		kinds:          kinds,
		trackObservers: observers,
	}
}

func (o *StreamObserver) Stream() *mediastream.Stream {
	return o.stream
}

func (o *StreamObserver) ForeignStream() ForeignStream {
	return o.foreign
}

// Snapshot of the track observers of a given kind.
func (o *StreamObserver) TrackObservers(kind mediastream.Kind) []*TrackObserver {
	return slices.Clone(o.trackObservers[kind])
}

// Called by the WebRTC stack on an arbitrary goroutine.
func (o *StreamObserver) OnChanged() {
	o.executor.Post(o.Reconcile)
}

// Brings the local stream in line with the foreign one. Must run on the designated thread.
// Each pass resolves a single addition or removal, the passes are repeated until the
// counts agree, so that several changes signalled at once are all picked up.
func (o *StreamObserver) Reconcile() {
	if o.detached {
		return
	}

	for _, kind := range o.kinds {
		o.reconcileKind(kind)
	}
}

func (o *StreamObserver) reconcileKind(kind mediastream.Kind) {
	for {
		foreignCount := len(foreignTracks(o.foreign, kind))
		localCount := o.stream.NumberOfTracks(kind)

		var progressed bool
		switch {
		case localCount < foreignCount:
			progressed = o.addTrack(kind)
		case localCount > foreignCount:
			progressed = o.removeTrack(kind)
		default:
			return
		}

		if !progressed {
			o.logger.WithFields(logrus.Fields{
				"kind":    kind,
				"local":   localCount,
				"foreign": foreignCount,
			}).Warn("track counts differ but no differing track found")
			metrics.DiffMismatch(kind.String())
			return
		}
	}
}

// Add path: mirrors the first foreign track of the given kind that has no observer yet.
// Returns `false` if there is no such track.
func (o *StreamObserver) addTrack(kind mediastream.Kind) bool {
	for _, foreign := range foreignTracks(o.foreign, kind) {
		if foreign.Kind() != kind || o.hasTrackObserver(kind, foreign.ID()) {
			continue
		}

		observer := newObservedTrack(o.executor, foreign)
		o.stream.AddRemoteTrack(observer.Track())
		o.trackObservers[kind] = append(o.trackObservers[kind], observer)

		o.logger.WithFields(logrus.Fields{"track_id": foreign.ID(), "kind": kind}).Info("remote track added")
		metrics.DiffPass(kind.String(), "add")
		metrics.RemoteTrackAdded(kind.String())
		return true
	}

	return false
}

// Remove path: drops the first observer whose foreign track is gone.
// Returns `false` if every observed track is still there.
func (o *StreamObserver) removeTrack(kind mediastream.Kind) bool {
	observers := o.trackObservers[kind]
	for i, observer := range observers {
		id := observer.ForeignTrack().ID()
		if findForeignTrack(o.foreign, kind, id) != nil {
			continue
		}

		o.trackObservers[kind] = slices.Delete(observers, i, i+1)
		o.stream.RemoveRemoteTrack(observer.Track())
		observer.Detach()

		o.logger.WithFields(logrus.Fields{"track_id": id, "kind": kind}).Info("remote track removed")
		metrics.DiffPass(kind.String(), "remove")
		metrics.RemoteTrackRemoved(kind.String())
		return true
	}

	return false
}

func (o *StreamObserver) hasTrackObserver(kind mediastream.Kind, id string) bool {
	return slices.IndexFunc(o.trackObservers[kind], func(observer *TrackObserver) bool {
		return observer.ForeignTrack().ID() == id
	}) != -1
}

// Starts listening to the foreign stream.
func (o *StreamObserver) Attach() {
	o.foreign.RegisterObserver(o)
}

// Stops listening to the foreign stream. The track observers stay attached.
func (o *StreamObserver) Detach() {
	o.foreign.UnregisterObserver(o)
}

// Detaches all track observers. Must run on the designated thread.
func (o *StreamObserver) detachTracks() {
	o.detached = true
	for _, kind := range o.kinds {
		for _, observer := range o.trackObservers[kind] {
			observer.Detach()
			metrics.RemoteTrackRemoved(kind.String())
		}
		o.trackObservers[kind] = nil
	}
}
