package peer

import (
	"errors"
	"io"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

func (p *Peer) bindCallbacks() {
	p.peerConnection.OnTrack(p.onRtpTrackReceived)
	p.peerConnection.OnDataChannel(p.onDataChannelReady)
	p.peerConnection.OnICECandidate(p.onICECandidateGathered)
	p.peerConnection.OnNegotiationNeeded(p.observer.OnRenegotiationNeeded)
	p.peerConnection.OnICEConnectionStateChange(p.onICEConnectionStateChanged)
	p.peerConnection.OnICEGatheringStateChange(p.observer.OnICEGatheringStateChange)
	p.peerConnection.OnConnectionStateChange(p.observer.OnConnectionStateChange)
	p.peerConnection.OnSignalingStateChange(p.observer.OnSignalingStateChange)
}

// A callback that is called once we receive first RTP packets from a track, i.e.
// we call this function each time a new track is received.
func (p *Peer) onRtpTrackReceived(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
	info, ok := webrtc_ext.TrackInfoFromTrack(track)
	if !ok {
		p.logger.WithField("kind", track.Kind()).Warn("ignoring remote track of unknown kind")
		return
	}

	p.addRemoteTrack(info, track, uint32(track.SSRC()))
}

// Registers the track with its stream and starts reading its media. The first track of
// a stream announces the stream.
func (p *Peer) addRemoteTrack(info webrtc_ext.TrackInfo, reader rtpReader, ssrc uint32) {
	logger := p.logger.WithField("stream_id", info.StreamID)
	remote := newRemoteTrack(info, reader, logger)

	var stream *remoteStream
	p.state.UpdateStreams(func(streams map[string]*remoteStream) {
		stream = streams[info.StreamID]

		// Further simulcast layers of a known track only carry media.
		if stream != nil && stream.track(info.Kind, info.TrackID) != nil {
			remote = nil
			return
		}

		if stream != nil {
			stream.addTrack(remote)
			return
		}

		// A new stream is announced with its first track already in place.
		stream = newRemoteStream(info.StreamID)
		stream.addTrack(remote)
		streams[info.StreamID] = stream
		p.observer.OnAddStream(stream)
	})

	if remote == nil {
		logger.WithFields(logrus.Fields{"track_id": info.TrackID, "layer": info.Layer}).Debug("additional simulcast layer")
		go drainRTP(reader)
		return
	}

	handlers := remoteTrackHandlers{
		onFinished: func(err error) {
			if err != nil {
				p.observer.OnError(err)
			}
			p.removeRemoteTrack(stream, remote)
		},
	}

	if info.Kind == mediastream.KindVideo {
		handlers.onResumed = func() { p.requestKeyFrame(ssrc) }
	}

	go remote.read(p.stallTimeout, handlers)
}

// Removes an ended track from its stream. The stream goes away with its last track.
func (p *Peer) removeRemoteTrack(stream *remoteStream, track *remoteTrack) {
	p.state.UpdateStreams(func(streams map[string]*remoteStream) {
		if stream.removeTrack(track) > 0 {
			return
		}

		if streams[stream.ID()] == stream {
			delete(streams, stream.ID())
			p.observer.OnRemoveStream(stream)
		}
	})
}

// Asks the sender of a video track for a key frame.
func (p *Peer) requestKeyFrame(ssrc uint32) {
	packets := []rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}}
	if err := p.peerConnection.WriteRTCP(packets); err != nil {
		p.logger.WithError(err).Warn("failed to send RTCP PLI")
	}
}

// A callback that is called once we receive an ICE candidate for this peer connection.
// The end of gathering is reported by the gathering state, so the nil candidate is dropped
// here instead of being passed on as a typed nil.
func (p *Peer) onICECandidateGathered(candidate *webrtc.ICECandidate) {
	if candidate == nil {
		return
	}

	p.observer.OnICECandidate(candidate)
}

func (p *Peer) onICEConnectionStateChanged(state webrtc.ICEConnectionState) {
	p.logger.Infof("ICE connection state changed: %v", state)
	p.observer.OnICEConnectionStateChange(state)
}

// A callback that is called once the remote peer has opened a data channel.
func (p *Peer) onDataChannelReady(dc *webrtc.DataChannel) {
	p.logger.WithField("label", dc.Label()).Debug("remote data channel")
	p.observer.OnDataChannel(dc)
}

// Reads the RTCP packets sent about a local track until the sender is stopped.
func readRTCP(sender *webrtc.RTPSender, logger *logrus.Entry) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				logger.WithError(err).Warn("failed to read RTCP")
			}
			return
		}

		for _, packet := range packets {
			switch packet := packet.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				logger.Debug("key frame requested by the remote peer")
			case *rtcp.ReceiverReport:
				for _, report := range packet.Reports {
					logger.WithFields(logrus.Fields{
						"ssrc":          report.SSRC,
						"fraction_lost": report.FractionLost,
						"jitter":        report.Jitter,
					}).Trace("receiver report")
				}
			}
		}
	}
}

func drainRTP(reader rtpReader) {
	for {
		if _, _, err := reader.ReadRTP(); err != nil {
			return
		}
	}
}
