package mediastream_test

import (
	"testing"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackIDs(tracks []*mediastream.Track) []string {
	ids := []string{}
	for _, track := range tracks {
		ids = append(ids, track.ID())
	}
	return ids
}

func TestNewStream_SortsTracksByKind(t *testing.T) {
	a1 := mediastream.NewTrack("a1", mediastream.KindAudio)
	v1 := mediastream.NewTrack("v1", mediastream.KindVideo)
	a2 := mediastream.NewTrack("a2", mediastream.KindAudio)

	// `v1` is passed in the audio list on purpose.
	stream := mediastream.NewStream("s1", []*mediastream.Track{a1, v1}, []*mediastream.Track{a2})

	assert.Equal(t, "s1", stream.ID())
	assert.Equal(t, []string{"a1", "a2"}, trackIDs(stream.AudioTracks()))
	assert.Equal(t, []string{"v1"}, trackIDs(stream.VideoTracks()))
	assert.Equal(t, 2, stream.NumberOfAudioTracks())
	assert.Equal(t, 1, stream.NumberOfVideoTracks())
}

func TestNewStream_Empty(t *testing.T) {
	stream := mediastream.NewStream("empty", nil, nil)

	assert.Empty(t, stream.AudioTracks())
	assert.Empty(t, stream.VideoTracks())
	assert.Zero(t, stream.NumberOfAudioTracks())
	assert.Zero(t, stream.NumberOfVideoTracks())
}

func TestStream_AddRemoveKeepsOrder(t *testing.T) {
	stream := mediastream.NewStream("s1", nil, nil)
	tracks := []*mediastream.Track{
		mediastream.NewTrack("a1", mediastream.KindAudio),
		mediastream.NewTrack("a2", mediastream.KindAudio),
		mediastream.NewTrack("a3", mediastream.KindAudio),
	}

	for _, track := range tracks {
		stream.AddRemoteTrack(track)
	}
	// Duplicates are ignored.
	stream.AddRemoteTrack(tracks[0])
	stream.AddRemoteTrack(nil)
	require.Equal(t, []string{"a1", "a2", "a3"}, trackIDs(stream.AudioTracks()))

	assert.True(t, stream.RemoveRemoteTrack(tracks[1]))
	assert.Equal(t, []string{"a1", "a3"}, trackIDs(stream.AudioTracks()))

	// Removing a track twice or a foreign track does nothing.
	assert.False(t, stream.RemoveRemoteTrack(tracks[1]))
	assert.False(t, stream.RemoveRemoteTrack(mediastream.NewTrack("a1", mediastream.KindAudio)))
	assert.False(t, stream.RemoveRemoteTrack(nil))
	assert.Equal(t, 2, stream.NumberOfAudioTracks())
}

func TestStream_SnapshotIsDetached(t *testing.T) {
	stream := mediastream.NewStream("s1", []*mediastream.Track{mediastream.NewTrack("a1", mediastream.KindAudio)}, nil)

	snapshot := stream.AudioTracks()
	stream.AddRemoteTrack(mediastream.NewTrack("a2", mediastream.KindAudio))

	assert.Len(t, snapshot, 1)
	assert.Len(t, stream.AudioTracks(), 2)
}

func TestTrack_Defaults(t *testing.T) {
	track := mediastream.NewTrack("a1", mediastream.KindAudio)

	assert.True(t, track.Enabled())
	assert.Equal(t, mediastream.ReadyStateLive, track.ReadyState())

	track.SetEnabled(false)
	track.SetReadyState(mediastream.ReadyStateEnded)
	assert.False(t, track.Enabled())
	assert.Equal(t, mediastream.ReadyStateEnded, track.ReadyState())
	assert.Equal(t, "ended", track.ReadyState().String())
}

func TestKindFromCodecType(t *testing.T) {
	kind, ok := mediastream.KindFromCodecType(webrtc.RTPCodecTypeAudio)
	assert.True(t, ok)
	assert.Equal(t, mediastream.KindAudio, kind)

	kind, ok = mediastream.KindFromCodecType(webrtc.RTPCodecTypeVideo)
	assert.True(t, ok)
	assert.Equal(t, mediastream.KindVideo, kind)

	_, ok = mediastream.KindFromCodecType(webrtc.RTPCodecType(0))
	assert.False(t, ok)
}
