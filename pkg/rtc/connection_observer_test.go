package rtc_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nix-port/rtcbridge/pkg/mainthread"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/pion/webrtc/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionObserver_ICEGatheringComplete(t *testing.T) {
	h := newHarness()

	h.connection.OnICEGatheringStateChange(webrtc.ICEGathererStateGathering)
	h.connection.OnICEGatheringStateChange(webrtc.ICEGathererStateComplete)
	assert.Empty(t, h.client.Calls())

	h.executor.RunPending()
	assert.Equal(t, []string{"gathering:gathering", "candidate:nil", "gathering:complete"}, h.client.Calls())
}

func TestConnectionObserver_RemoveUnknownStream(t *testing.T) {
	h := newHarness()
	known := newFakeStream("known", audio("a1")...)
	h.addStream(t, known)
	callsBefore := h.client.Calls()

	unknown := newFakeStream("unknown", audio("a2")...)
	h.connection.OnRemoveStream(unknown)
	h.executor.RunPending()

	assert.Equal(t, callsBefore, h.client.Calls())
	assert.Equal(t, 1, h.connection.StreamCount())
	assert.NotNil(t, h.connection.StreamObserver(known))
}

func TestConnectionObserver_AddStream(t *testing.T) {
	h := newHarness()
	tracks := audio("a1", "a2")
	foreign := newFakeStream("s1", tracks...)

	stream := h.connection.OnAddStream(foreign)

	// The local record is available right away, the client hears about it on the designated thread.
	require.NotNil(t, stream)
	assert.Equal(t, "s1", stream.ID())
	assert.Equal(t, []string{"a1", "a2"}, trackIDs(stream.AudioTracks()))
	assert.Empty(t, h.client.Calls())
	assert.Equal(t, 1, foreign.count())
	for _, track := range tracks {
		assert.Equal(t, 1, track.count())
	}

	h.executor.RunPending()
	assert.Equal(t, []string{"add-stream:s1"}, h.client.Calls())
	assert.Same(t, stream, h.client.streams[0])
	assert.Same(t, stream, h.connection.StreamObserver(foreign).Stream())
	assert.Same(t, foreign, h.connection.StreamObserver(foreign).ForeignStream())
}

func TestConnectionObserver_AddStreamTwice(t *testing.T) {
	h := newHarness()
	foreign := newFakeStream("s1", audio("a1")...)

	first := h.connection.OnAddStream(foreign)
	second := h.connection.OnAddStream(foreign)
	h.executor.RunPending()

	assert.Same(t, first, second)
	assert.Equal(t, []string{"add-stream:s1"}, h.client.Calls())
	assert.Equal(t, 1, foreign.count())
	assert.Equal(t, 1, h.connection.StreamCount())
}

func TestConnectionObserver_RemoveStream(t *testing.T) {
	h := newHarness()
	tracks := audio("a1", "a2")
	foreign := newFakeStream("s1", tracks...)
	h.addStream(t, foreign)

	h.connection.OnRemoveStream(foreign)
	assert.Zero(t, foreign.count(), "stream observer is unregistered right away")
	assert.Nil(t, h.connection.StreamObserver(foreign))
	assert.Zero(t, h.connection.StreamCount())

	h.executor.RunPending()
	assert.Equal(t, []string{"add-stream:s1", "remove-stream:s1"}, h.client.Calls())
	for _, track := range tracks {
		assert.Zero(t, track.count())
	}

	// A second removal is a no-op.
	h.connection.OnRemoveStream(foreign)
	h.executor.RunPending()
	assert.Len(t, h.client.Calls(), 2)
}

func TestConnectionObserver_PendingReconcileRunsBeforeRemoval(t *testing.T) {
	h := newHarness()
	foreign := newFakeStream("s1", audio("a1")...)
	observer := h.addStream(t, foreign)

	foreign.add(newFakeTrack("a2", mediastream.KindAudio))
	foreign.notify()
	h.connection.OnRemoveStream(foreign)
	h.executor.RunPending()

	assert.Equal(t, []string{"a1", "a2"}, trackIDs(observer.Stream().AudioTracks()))
	assert.Equal(t, []string{"add-stream:s1", "remove-stream:s1"}, h.client.Calls())
}

func TestConnectionObserver_RelaysStateChanges(t *testing.T) {
	h := newHarness()

	h.connection.OnSignalingStateChange(webrtc.SignalingStateHaveRemoteOffer)
	h.connection.OnRenegotiationNeeded()
	h.connection.OnICEConnectionStateChange(webrtc.ICEConnectionStateChecking)
	h.connection.OnICEConnectionStateChange(webrtc.ICEConnectionStateConnected)
	h.connection.OnSignalingStateChange(webrtc.SignalingStateStable)
	h.executor.RunPending()

	assert.Equal(t, []string{
		"signaling:have-remote-offer",
		"negotiation-needed",
		"ice-connection:checking",
		"ice-connection:connected",
		"signaling:stable",
	}, h.client.Calls())
}

func TestConnectionObserver_ICECandidate(t *testing.T) {
	h := newHarness()
	mid, index := "0", uint16(1)

	h.connection.OnICECandidate(fakeCandidate{webrtc.ICECandidateInit{
		Candidate:     "candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host",
		SDPMid:        &mid,
		SDPMLineIndex: &index,
	}})
	h.connection.OnICECandidate(fakeCandidate{webrtc.ICECandidateInit{Candidate: "candidate:2"}})
	h.connection.OnICECandidate(nil)
	h.executor.RunPending()

	assert.Equal(t, []string{
		"candidate:candidate:1 1 udp 2130706431 192.0.2.1 50000 typ host|0|1",
		"candidate:candidate:2||0",
	}, h.client.Calls())
}

func TestConnectionObserver_UnimplementedNotificationsAreNoOps(t *testing.T) {
	h := newHarness()

	h.connection.OnError(errors.New("boom"))
	h.connection.OnConnectionStateChange(webrtc.PeerConnectionStateFailed)

	assert.Zero(t, h.executor.Pending())
	assert.Empty(t, h.client.Calls())
}

func TestConnectionObserver_Close(t *testing.T) {
	h := newHarness()
	tracks := audio("a1")
	streams := []*fakeStream{newFakeStream("s1", tracks...), newFakeStream("s2")}
	for _, stream := range streams {
		h.addStream(t, stream)
	}

	h.connection.Close()
	h.executor.RunPending()

	assert.Zero(t, h.connection.StreamCount())
	for _, stream := range streams {
		assert.Zero(t, stream.count())
	}
	assert.Zero(t, tracks[0].count())
	assert.Equal(t, []string{"add-stream:s1", "add-stream:s2"}, h.client.Calls())
}

func TestConnectionObserver_ConcurrentStreams(t *testing.T) {
	loop := mainthread.NewLoop(logrus.NewEntry(logrus.StandardLogger()))
	defer loop.Stop()

	client := &recordingClient{}
	connection := rtc.NewConnectionObserver(client, loop, rtc.Options{})

	const count = 50
	streams := make([]*fakeStream, count)
	for i := range streams {
		streams[i] = newFakeStream(fmt.Sprintf("s%d", i), audio("a")...)
	}

	// The WebRTC stack calls from many goroutines at once.
	var wg sync.WaitGroup
	for _, stream := range streams {
		wg.Add(1)
		go func(stream *fakeStream) {
			defer wg.Done()
			connection.OnAddStream(stream)
			stream.add(newFakeTrack("b", mediastream.KindAudio))
			stream.notify()
			connection.OnRemoveStream(stream)
		}(stream)
	}
	wg.Wait()
	loop.Sync()

	assert.Zero(t, connection.StreamCount())
	assert.Len(t, client.Calls(), 2*count)
	for _, stream := range streams {
		assert.Zero(t, stream.count())
		for _, track := range stream.tracks {
			assert.Zero(t, track.count(), "track %s of %s", track.id, stream.id)
		}
	}
}
