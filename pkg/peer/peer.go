package peer

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/peer/state"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/nix-port/rtcbridge/pkg/telemetry"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrCantCreatePeerConnection   = errors.New("can't create peer connection")
	ErrCantSetRemoteDescription   = errors.New("can't set remote description")
	ErrCantSetLocalDescription    = errors.New("can't set local description")
	ErrCantCreateOffer            = errors.New("can't create offer")
	ErrCantCreateAnswer           = errors.New("can't create answer")
	ErrCantAddTransceiver         = errors.New("can't add transceiver")
	ErrCantUpdateICE              = errors.New("can't update ICE configuration")
	ErrCantAddICECandidate        = errors.New("can't add ICE candidate")
	ErrCantAddTrack               = errors.New("can't add track")
	ErrCantCreateDataChannel      = errors.New("can't create data channel")
	ErrPeerConnectionClosed       = errors.New("peer connection is already closed")
)

// Options of a peer.
type Options struct {
	// Track kinds that are mirrored into the local stream records. Audio only if empty.
	Kinds []mediastream.Kind
	// Remote tracks that deliver no media for this long are reported as disabled. Zero disables the check.
	TrackStallTimeout time.Duration
	Logger            *logrus.Entry
	// Parent span of the peer connection span. May be nil.
	Span *telemetry.Span
}

// A wrapped representation of the peer connection. The peer forwards every notification of
// the WebRTC stack to its connection observer, which relays them to the client on the designated thread.
type Peer struct {
	id             string
	logger         *logrus.Entry
	peerConnection *webrtc.PeerConnection
	observer       *rtc.ConnectionObserver
	executor       mainthread.Executor
	constraints    mediastream.Constraints
	state          *state.PeerState[*remoteStream]
	stallTimeout   time.Duration

	closedMutex sync.Mutex
	closed      bool
}

// Creates a new peer connection that reports to `client` on `executor`.
func NewPeer(
	factory *webrtc_ext.PeerConnectionFactory,
	configuration webrtc.Configuration,
	constraints mediastream.Constraints,
	client rtc.Client,
	executor mainthread.Executor,
	options Options,
) (*Peer, error) {
	id := uuid.NewString()

	logger := options.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger = logger.WithField("conn_id", id)

	constraints = constraints.FilterPeerConnectionConstraints()
	applyICETransports(&configuration, constraints, logger)

	peerConnection, err := factory.CreatePeerConnection(configuration)
	if err != nil {
		logger.WithError(err).Error("failed to create peer connection")
		return nil, fmt.Errorf("%w: %s", ErrCantCreatePeerConnection, err)
	}

	span := telemetry.Start(options.Span.Context(), "peer_connection", attribute.String("id", id))

	peer := &Peer{
		id:             id,
		logger:         logger,
		peerConnection: peerConnection,
		executor:       executor,
		constraints:    constraints,
		state:          state.NewPeerState[*remoteStream](),
		stallTimeout:   options.TrackStallTimeout,
		observer: rtc.NewConnectionObserver(client, executor, rtc.Options{
			Kinds:  options.Kinds,
			Logger: logger,
			Span:   span,
		}),
	}

	peer.bindCallbacks()

	return peer, nil
}

func (p *Peer) ID() string {
	return p.id
}

// The constraints the peer has been created with, filtered to the ones the peer connection understands.
func (p *Peer) Constraints() mediastream.Constraints {
	return p.constraints
}

// The observer that receives the notifications of this peer connection.
func (p *Peer) Observer() *rtc.ConnectionObserver {
	return p.observer
}

// Creates an SDP offer. `OfferToReceiveAudio` and `OfferToReceiveVideo` add receive-only
// transceivers unless there is already a transceiver of that kind.
func (p *Peer) CreateOffer(constraints mediastream.Constraints) (webrtc.SessionDescription, error) {
	constraints = constraints.FilterPeerConnectionConstraints()

	for _, receive := range []struct {
		constraint string
		codecType  webrtc.RTPCodecType
	}{
		{mediastream.ConstraintOfferToReceiveAudio, webrtc.RTPCodecTypeAudio},
		{mediastream.ConstraintOfferToReceiveVideo, webrtc.RTPCodecTypeVideo},
	} {
		codecType := receive.codecType
		if enabled, found := constraints.Bool(receive.constraint); !found || !enabled || p.hasTransceiver(codecType) {
			continue
		}

		if _, err := p.peerConnection.AddTransceiverFromKind(codecType, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			p.logger.WithError(err).WithField("kind", codecType).Error("failed to add transceiver")
			return webrtc.SessionDescription{}, fmt.Errorf("%w: %s", ErrCantAddTransceiver, err)
		}
	}

	options := &webrtc.OfferOptions{OfferAnswerOptions: offerAnswerOptions(constraints)}
	options.ICERestart, _ = constraints.Bool(mediastream.ConstraintIceRestart)
	logRequestIdentity(constraints, p.logger)

	offer, err := p.peerConnection.CreateOffer(options)
	if err != nil {
		p.logger.WithError(err).Error("failed to create offer")
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %s", ErrCantCreateOffer, err)
	}

	return offer, nil
}

func (p *Peer) CreateAnswer(constraints mediastream.Constraints) (webrtc.SessionDescription, error) {
	constraints = constraints.FilterPeerConnectionConstraints()
	logRequestIdentity(constraints, p.logger)

	answer, err := p.peerConnection.CreateAnswer(&webrtc.AnswerOptions{OfferAnswerOptions: offerAnswerOptions(constraints)})
	if err != nil {
		p.logger.WithError(err).Error("failed to create answer")
		return webrtc.SessionDescription{}, fmt.Errorf("%w: %s", ErrCantCreateAnswer, err)
	}

	return answer, nil
}

func (p *Peer) SetLocalDescription(description webrtc.SessionDescription) error {
	if err := p.peerConnection.SetLocalDescription(description); err != nil {
		p.logger.WithError(err).Error("failed to set local description")
		return fmt.Errorf("%w: %s", ErrCantSetLocalDescription, err)
	}

	return nil
}

func (p *Peer) SetRemoteDescription(description webrtc.SessionDescription) error {
	if err := p.peerConnection.SetRemoteDescription(description); err != nil {
		p.logger.WithError(err).Error("failed to set remote description")
		return fmt.Errorf("%w: %s", ErrCantSetRemoteDescription, err)
	}

	return nil
}

// Nil if no local description has been set yet.
func (p *Peer) LocalDescription() *webrtc.SessionDescription {
	return p.peerConnection.LocalDescription()
}

// Nil if no remote description has been set yet.
func (p *Peer) RemoteDescription() *webrtc.SessionDescription {
	return p.peerConnection.RemoteDescription()
}

// Replaces the ICE servers and the transport policy of the connection.
func (p *Peer) UpdateICE(configuration webrtc.Configuration, constraints mediastream.Constraints) error {
	applyICETransports(&configuration, constraints.FilterPeerConnectionConstraints(), p.logger)

	if err := p.peerConnection.SetConfiguration(configuration); err != nil {
		p.logger.WithError(err).Error("failed to update ICE configuration")
		return fmt.Errorf("%w: %s", ErrCantUpdateICE, err)
	}

	return nil
}

func (p *Peer) AddICECandidate(candidate rtc.ICECandidateDescriptor) error {
	if err := p.peerConnection.AddICECandidate(candidate.ToWebRTC()); err != nil {
		p.logger.WithError(err).WithField("candidate", candidate.Candidate).Error("failed to add ICE candidate")
		return fmt.Errorf("%w: %s", ErrCantAddICECandidate, err)
	}

	return nil
}

// Sends the local track to the remote peer. The RTCP packets that the remote peer sends
// about the track are read and logged, which also keeps the interceptors running.
func (p *Peer) AddTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	sender, err := p.peerConnection.AddTrack(track)
	if err != nil {
		p.logger.WithError(err).WithField("track_id", track.ID()).Error("failed to add track")
		return nil, fmt.Errorf("%w: %s", ErrCantAddTrack, err)
	}

	go readRTCP(sender, p.logger.WithField("track_id", track.ID()))

	return sender, nil
}

// Creates a data channel. The handler's client has to be set by the caller.
func (p *Peer) CreateDataChannel(label string, init *webrtc.DataChannelInit) (*rtc.DataChannelHandler, error) {
	dataChannel, err := p.peerConnection.CreateDataChannel(label, init)
	if err != nil {
		p.logger.WithError(err).WithField("label", label).Error("failed to create data channel")
		return nil, fmt.Errorf("%w: %s", ErrCantCreateDataChannel, err)
	}

	p.state.AddDataChannel(dataChannel)
	tracked := &localDataChannel{
		DataChannel: dataChannel,
		onClosed:    func() { p.state.RemoveDataChannel(dataChannel) },
	}

	return rtc.NewDataChannelHandler(tracked, p.executor, p.logger), nil
}

// Closes the peer connection. From this moment on, the client is not informed about
// remote streams anymore.
func (p *Peer) Stop() error {
	p.closedMutex.Lock()
	defer p.closedMutex.Unlock()

	if p.closed {
		return ErrPeerConnectionClosed
	}
	p.closed = true

	p.observer.Close()

	for _, dataChannel := range p.state.TakeDataChannels() {
		if err := dataChannel.Close(); err != nil {
			p.logger.WithError(err).WithField("label", dataChannel.Label()).Warn("failed to close data channel")
		}
	}

	if err := p.peerConnection.Close(); err != nil {
		p.logger.WithError(err).Error("failed to close peer connection")
		return err
	}

	// Tracks that end from now on find no registered stream and are not announced.
	streams := p.state.TakeStreams()
	p.logger.WithField("streams", len(streams)).Info("peer connection closed")

	return nil
}

func (p *Peer) hasTransceiver(codecType webrtc.RTPCodecType) bool {
	for _, transceiver := range p.peerConnection.GetTransceivers() {
		if transceiver.Kind() == codecType {
			return true
		}
	}

	return false
}

func offerAnswerOptions(constraints mediastream.Constraints) webrtc.OfferAnswerOptions {
	voiceActivityDetection, _ := constraints.Bool(mediastream.ConstraintVoiceActivityDetection)
	return webrtc.OfferAnswerOptions{VoiceActivityDetection: voiceActivityDetection}
}

// `IceTransports` is either `all` or `relay`, anything else keeps the configured policy.
func applyICETransports(configuration *webrtc.Configuration, constraints mediastream.Constraints, logger *logrus.Entry) {
	value, found := constraints.String(mediastream.ConstraintIceTransports)
	if !found {
		return
	}

	switch value {
	case "relay":
		configuration.ICETransportPolicy = webrtc.ICETransportPolicyRelay
	case "all":
		configuration.ICETransportPolicy = webrtc.ICETransportPolicyAll
	default:
		logger.WithField("value", value).Warn("unknown ICE transports constraint, ignoring")
	}
}

func logRequestIdentity(constraints mediastream.Constraints, logger *logrus.Entry) {
	if value, found := constraints.String(mediastream.ConstraintRequestIdentity); found {
		logger.WithField("value", value).Debug("identity providers are not supported, ignoring RequestIdentity")
	}
}
