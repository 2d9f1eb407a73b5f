package rtc

import (
	"sync"

	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/metrics"
	"github.com/nix-port/rtcbridge/pkg/telemetry"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Options of the connection observer.
type Options struct {
	// Track kinds that are mirrored into local records. Audio only if empty.
	Kinds []mediastream.Kind
	// Logger to use, the standard logger if nil.
	Logger *logrus.Entry
	// Span to which the notifications are added as events. May be nil.
	Span *telemetry.Span
}

// ConnectionObserver is the single listener of a peer connection. It receives every
// notification of the WebRTC stack (on arbitrary goroutines), creates the local records of
// the remote streams synchronously and relays everything else to the client on the designated thread.
type ConnectionObserver struct {
	client   Client
	executor mainthread.Executor
	kinds    []mediastream.Kind
	logger   *logrus.Entry
	span     *telemetry.Span

	// Stream observers keyed by the foreign handle. Only accessed on the goroutines of the WebRTC stack.
	mutex           sync.Mutex
	streamObservers map[ForeignStream]*StreamObserver
}

func NewConnectionObserver(client Client, executor mainthread.Executor, options Options) *ConnectionObserver {
	kinds := options.Kinds
	if len(kinds) == 0 {
		kinds = []mediastream.Kind{mediastream.KindAudio}
	}

	logger := options.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &ConnectionObserver{
		client:          client,
		executor:        executor,
		kinds:           kinds,
		logger:          logger,
		span:            options.Span,
		streamObservers: make(map[ForeignStream]*StreamObserver),
	}
}

// There is no error reporting towards the client yet.
func (c *ConnectionObserver) OnError(err error) {
	c.notImplemented("error", c.logger.WithError(err))
	c.span.Fail(err)
}

func (c *ConnectionObserver) OnSignalingStateChange(state webrtc.SignalingState) {
	c.notified("signaling-state", attribute.String("state", state.String()))

	localState := SignalingStateFromWebRTC(state)
	c.executor.Post(func() { c.client.DidChangeSignalingState(localState) })
}

// The aggregated connection state is not relayed to the client.
func (c *ConnectionObserver) OnConnectionStateChange(state webrtc.PeerConnectionState) {
	c.notImplemented("connection-state", c.logger.WithField("state", state))
}

// Creates the local record of a new remote stream and returns it. The client learns
// about the stream on the designated thread. The record is not touched by the
// designated thread before it's handed over to the client, so it's safe to build it here.
func (c *ConnectionObserver) OnAddStream(foreign ForeignStream) *mediastream.Stream {
	c.notified("add-stream", attribute.String("stream_id", foreign.ID()))

	c.mutex.Lock()
	if existing, found := c.streamObservers[foreign]; found {
		c.mutex.Unlock()
		c.logger.WithField("stream_id", foreign.ID()).Warn("remote stream announced twice, ignoring")
		return existing.Stream()
	}

	logger := c.logger.WithField("stream_id", foreign.ID())
	trackObservers := make(map[mediastream.Kind][]*TrackObserver)
	localTracks := make(map[mediastream.Kind][]*mediastream.Track)
	for _, kind := range c.kinds {
		for _, foreignTrack := range foreignTracks(foreign, kind) {
			observer := newObservedTrack(c.executor, foreignTrack)
			trackObservers[kind] = append(trackObservers[kind], observer)
			localTracks[kind] = append(localTracks[kind], observer.Track())
			metrics.RemoteTrackAdded(kind.String())
		}
	}

	stream := mediastream.NewStream(foreign.ID(), localTracks[mediastream.KindAudio], localTracks[mediastream.KindVideo])
	streamObserver := NewStreamObserver(c.executor, foreign, stream, trackObservers, c.kinds, logger)
	streamObserver.Attach()
	c.streamObservers[foreign] = streamObserver
	c.mutex.Unlock()

	logger.WithFields(logrus.Fields{
		"audio": stream.NumberOfAudioTracks(),
		"video": stream.NumberOfVideoTracks(),
	}).Info("remote stream added")
	metrics.RemoteStreamAdded()

	c.executor.Post(func() { c.client.DidAddRemoteStream(stream) })

	return stream
}

// Forgets the remote stream. Unknown streams are ignored, the removal may race with
// the engine's own teardown.
func (c *ConnectionObserver) OnRemoveStream(foreign ForeignStream) {
	c.notified("remove-stream", attribute.String("stream_id", foreign.ID()))

	c.mutex.Lock()
	streamObserver, found := c.streamObservers[foreign]
	if found {
		delete(c.streamObservers, foreign)
		streamObserver.Detach()
	}
	c.mutex.Unlock()

	if !found {
		c.logger.WithField("stream_id", foreign.ID()).Debug("removal of an unknown remote stream, ignoring")
		return
	}

	c.logger.WithField("stream_id", foreign.ID()).Info("remote stream removed")
	metrics.RemoteStreamRemoved()

	// Reconciliations that are already queued for the stream run before this closure.
	stream := streamObserver.Stream()
	c.executor.Post(func() {
		streamObserver.detachTracks()
		c.client.DidRemoveRemoteStream(stream)
	})
}

func (c *ConnectionObserver) OnRenegotiationNeeded() {
	c.notified("renegotiation-needed")
	c.executor.Post(c.client.NegotiationNeeded)
}

func (c *ConnectionObserver) OnICEGatheringStateChange(state webrtc.ICEGathererState) {
	c.notified("ice-gathering-state", attribute.String("state", state.String()))

	// A nil candidate tells the client that there will be no more candidates,
	// it must arrive before the state change.
	if state == webrtc.ICEGathererStateComplete {
		c.executor.Post(func() { c.client.DidGenerateICECandidate(nil) })
	}

	localState := ICEGatheringStateFromWebRTC(state)
	c.executor.Post(func() { c.client.DidChangeICEGatheringState(localState) })
}

func (c *ConnectionObserver) OnICEConnectionStateChange(state webrtc.ICEConnectionState) {
	c.notified("ice-connection-state", attribute.String("state", state.String()))

	localState := ICEConnectionStateFromWebRTC(state)
	c.executor.Post(func() { c.client.DidChangeICEConnectionState(localState) })
}

// The end of gathering is signalled by the gathering state, so a nil candidate is ignored here.
func (c *ConnectionObserver) OnICECandidate(candidate ForeignCandidate) {
	if candidate == nil {
		return
	}

	descriptor := NewICECandidateDescriptor(candidate)
	c.notified("ice-candidate", attribute.String("candidate", descriptor.Candidate))
	c.logger.WithField("candidate", descriptor.Candidate).Debug("ICE candidate gathered")

	c.executor.Post(func() { c.client.DidGenerateICECandidate(descriptor) })
}

// Wraps a data channel opened by the remote peer. The client is informed on the designated
// thread like for every other notification.
func (c *ConnectionObserver) OnDataChannel(channel ForeignDataChannel) {
	c.notified("data-channel", attribute.String("label", channel.Label()))

	handler := NewDataChannelHandler(channel, c.executor, c.logger)
	c.executor.Post(func() { c.client.DidAddRemoteDataChannel(handler) })
}

// Looks up the observer of a remote stream, nil if the stream is unknown.
func (c *ConnectionObserver) StreamObserver(foreign ForeignStream) *StreamObserver {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.streamObservers[foreign]
}

// Number of remote streams that are currently observed.
func (c *ConnectionObserver) StreamCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.streamObservers)
}

// Detaches from every foreign object. No client callbacks are issued.
func (c *ConnectionObserver) Close() {
	c.mutex.Lock()
	observers := c.streamObservers
	c.streamObservers = make(map[ForeignStream]*StreamObserver)
	c.mutex.Unlock()

	for _, streamObserver := range observers {
		streamObserver.Detach()
		metrics.RemoteStreamRemoved()
		c.executor.Post(streamObserver.detachTracks)
	}

	c.span.End()
}

func (c *ConnectionObserver) notified(notification string, attributes ...attribute.KeyValue) {
	metrics.Notification(notification)
	c.span.Event(notification, attributes...)
}

func (c *ConnectionObserver) notImplemented(notification string, logger *logrus.Entry) {
	metrics.Notification(notification)
	metrics.Unimplemented(notification)
	c.span.Event(notification + " (not implemented)")
	logger.Warnf("not implemented: %s notification", notification)
}
