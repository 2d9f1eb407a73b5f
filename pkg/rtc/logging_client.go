package rtc

import (
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/sirupsen/logrus"
)

// LoggingClient is a client that only logs what it's told. It also keeps the remote streams
// it has been told about, which is all the state a diagnostic client needs.
type LoggingClient struct {
	logger *logrus.Entry

	// Only touched on the designated thread.
	streams map[string]*mediastream.Stream
	// Called for every gathered candidate (nil at the end of gathering), may be nil.
	OnCandidate func(*ICECandidateDescriptor)
}

func NewLoggingClient(logger *logrus.Entry) *LoggingClient {
	return &LoggingClient{
		logger:  logger,
		streams: make(map[string]*mediastream.Stream),
	}
}

// The remote streams currently known to the client. Must be called on the designated thread.
func (c *LoggingClient) Streams() map[string]*mediastream.Stream {
	return c.streams
}

func (c *LoggingClient) DidChangeSignalingState(state SignalingState) {
	c.logger.WithField("state", state).Info("signaling state changed")
}

func (c *LoggingClient) DidAddRemoteStream(stream *mediastream.Stream) {
	c.streams[stream.ID()] = stream
	c.logger.WithFields(logrus.Fields{
		"stream_id": stream.ID(),
		"audio":     stream.NumberOfAudioTracks(),
		"video":     stream.NumberOfVideoTracks(),
	}).Info("remote stream added")
}

func (c *LoggingClient) DidRemoveRemoteStream(stream *mediastream.Stream) {
	delete(c.streams, stream.ID())
	c.logger.WithField("stream_id", stream.ID()).Info("remote stream removed")
}

func (c *LoggingClient) NegotiationNeeded() {
	c.logger.Info("negotiation needed")
}

func (c *LoggingClient) DidGenerateICECandidate(candidate *ICECandidateDescriptor) {
	if candidate == nil {
		c.logger.Info("ICE candidate gathering finished")
	} else {
		c.logger.WithField("candidate", candidate.Candidate).Debug("ICE candidate generated")
	}

	if c.OnCandidate != nil {
		c.OnCandidate(candidate)
	}
}

func (c *LoggingClient) DidChangeICEGatheringState(state ICEGatheringState) {
	c.logger.WithField("state", state).Debug("ICE gathering state changed")
}

func (c *LoggingClient) DidChangeICEConnectionState(state ICEConnectionState) {
	c.logger.WithField("state", state).Info("ICE connection state changed")
}

func (c *LoggingClient) DidAddRemoteDataChannel(channel *DataChannelHandler) {
	c.logger.WithField("label", channel.Label()).Info("remote data channel added")
	channel.SetClient(&loggingDataChannelClient{c.logger.WithField("label", channel.Label())})
}

type loggingDataChannelClient struct {
	logger *logrus.Entry
}

func (c *loggingDataChannelClient) DidChangeReadyState(state DataChannelState) {
	c.logger.WithField("state", state).Info("data channel state changed")
}

func (c *loggingDataChannelClient) DidReceiveStringData(data string) {
	c.logger.WithField("data", data).Info("data channel message received")
}

func (c *loggingDataChannelClient) DidReceiveRawData(data []byte) {
	c.logger.WithField("bytes", len(data)).Info("binary data channel message received")
}

func (c *loggingDataChannelClient) DidDetectError(err error) {
	c.logger.WithError(err).Warn("data channel error")
}
