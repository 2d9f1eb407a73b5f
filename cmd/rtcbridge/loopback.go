package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nix-port/rtcbridge/pkg/config"
	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/peer"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/nix-port/rtcbridge/pkg/telemetry"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
)

const (
	opusClockRate     = 48000
	opusFrameDuration = 20 * time.Millisecond
)

// An Opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// Runs two peer connections in the same process. The sender publishes an audio track,
// the receiver mirrors the remote stream and logs what its client is told.
func runLoopback(ctx context.Context, config *config.Config, logger *logrus.Entry) error {
	factory, err := webrtc_ext.NewPeerConnectionFactory(config.WebRTC)
	if err != nil {
		return err
	}

	loop := mainthread.NewLoop(logger.WithField("component", "mainthread"))
	defer loop.Stop()

	session := telemetry.Start(ctx, "loopback")
	defer session.End()

	newPeer := func(name string) (*peer.Peer, *rtc.LoggingClient, error) {
		peerLogger := logger.WithField("peer", name)
		client := rtc.NewLoggingClient(peerLogger)
		p, err := peer.NewPeer(factory, webrtc.Configuration{}, config.Bridge.Constraints, client, loop, peer.Options{
			Kinds:             config.Bridge.Kinds(),
			TrackStallTimeout: config.Bridge.TrackStallTimeout,
			Logger:            peerLogger,
			Span:              session,
		})
		return p, client, err
	}

	sender, senderClient, err := newPeer("sender")
	if err != nil {
		return err
	}
	defer sender.Stop()

	receiver, receiverClient, err := newPeer("receiver")
	if err != nil {
		return err
	}
	defer receiver.Stop()

	// Candidates are delivered on the loop, i.e. after the negotiation below has completed.
	senderClient.OnCandidate = trickle(receiver, logger)
	receiverClient.OnCandidate = trickle(sender, logger)

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2},
		"tone",
		"loopback",
	)
	if err != nil {
		return fmt.Errorf("failed to create local track: %w", err)
	}

	if _, err := sender.AddTrack(track); err != nil {
		return err
	}

	chat, err := sender.CreateDataChannel("chat", nil)
	if err != nil {
		return err
	}
	defer chat.Close()

	negotiated := make(chan error, 1)
	loop.Post(func() { negotiated <- negotiate(sender, receiver) })
	if err := <-negotiated; err != nil {
		return err
	}

	go sendSilence(ctx, track, logger)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("loopback session finished")
			return nil
		case <-ticker.C:
			if err := chat.SendStringData("ping"); err != nil && !errors.Is(err, rtc.ErrDataChannelNotReady) {
				logger.WithError(err).Warn("failed to send ping")
			}

			loop.Post(func() {
				for id, stream := range receiverClient.Streams() {
					logger.WithFields(logrus.Fields{
						"stream_id": id,
						"audio":     stream.NumberOfAudioTracks(),
						"video":     stream.NumberOfVideoTracks(),
					}).Info("mirrored remote stream")
				}
			})
		}
	}
}

func negotiate(sender, receiver *peer.Peer) error {
	offer, err := sender.CreateOffer(sender.Constraints())
	if err != nil {
		return err
	}
	if err := sender.SetLocalDescription(offer); err != nil {
		return err
	}
	if err := receiver.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := receiver.CreateAnswer(receiver.Constraints())
	if err != nil {
		return err
	}
	if err := receiver.SetLocalDescription(answer); err != nil {
		return err
	}

	return sender.SetRemoteDescription(answer)
}

// Hands the candidates gathered by one peer to the other one.
func trickle(remote *peer.Peer, logger *logrus.Entry) func(*rtc.ICECandidateDescriptor) {
	return func(candidate *rtc.ICECandidateDescriptor) {
		if candidate == nil {
			return
		}

		if err := remote.AddICECandidate(*candidate); err != nil {
			logger.WithError(err).Warn("dropping candidate")
		}
	}
}

// Writes a frame of silence every 20ms until the context is done.
func sendSilence(ctx context.Context, track *webrtc.TrackLocalStaticRTP, logger *logrus.Entry) {
	ticker := time.NewTicker(opusFrameDuration)
	defer ticker.Stop()

	packet := &rtp.Packet{
		Header: rtp.Header{
			Version:     2,
			PayloadType: 111,
		},
		Payload: opusSilence,
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := track.WriteRTP(packet); err != nil && !errors.Is(err, io.ErrClosedPipe) {
				logger.WithError(err).Warn("failed to write RTP packet")
				return
			}

			packet.SequenceNumber++
			packet.Timestamp += uint32(opusClockRate * opusFrameDuration / time.Second)
		}
	}
}
