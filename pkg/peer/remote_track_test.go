package peer

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Feeds the packets (or the error that ends the track) sent on the channel.
type fakeReader struct {
	packets chan *rtp.Packet
	err     error
}

func newFakeReader() *fakeReader {
	return &fakeReader{packets: make(chan *rtp.Packet)}
}

func (r *fakeReader) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	packet, ok := <-r.packets
	if !ok {
		return nil, nil, r.err
	}
	return packet, nil, nil
}

func (r *fakeReader) finish(err error) {
	r.err = err
	close(r.packets)
}

type countingObserver struct {
	mutex sync.Mutex
	count int
}

func (o *countingObserver) OnChanged() {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.count++
}

func (o *countingObserver) changes() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return o.count
}

func audioInfo(id string) webrtc_ext.TrackInfo {
	return webrtc_ext.TrackInfo{TrackID: id, StreamID: "stream", Kind: mediastream.KindAudio}
}

func testLogger() *logrus.Entry {
	return logrus.NewEntry(logrus.StandardLogger())
}

func TestRemoteTrack_EndsOnEOF(t *testing.T) {
	reader := newFakeReader()
	track := newRemoteTrack(audioInfo("a1"), reader, testLogger())
	observer := &countingObserver{}
	track.RegisterObserver(observer)

	assert.True(t, track.Enabled())
	assert.Equal(t, rtc.TrackStateLive, track.State())

	finished := make(chan error, 1)
	go track.read(0, remoteTrackHandlers{onFinished: func(err error) { finished <- err }})

	reader.packets <- &rtp.Packet{Header: rtp.Header{SequenceNumber: 1}}
	reader.packets <- &rtp.Packet{Header: rtp.Header{SequenceNumber: 2}}
	reader.finish(io.EOF)

	select {
	case err := <-finished:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "track did not finish")
	}

	assert.Equal(t, rtc.TrackStateEnded, track.State())
	assert.Equal(t, 1, observer.changes())
}

func TestRemoteTrack_FailsOnReadError(t *testing.T) {
	reader := newFakeReader()
	track := newRemoteTrack(audioInfo("a1"), reader, testLogger())

	readErr := errors.New("srtp failure")
	finished := make(chan error, 1)
	go track.read(0, remoteTrackHandlers{onFinished: func(err error) { finished <- err }})
	reader.finish(readErr)

	assert.ErrorIs(t, <-finished, readErr)
	assert.Equal(t, rtc.TrackStateFailed, track.State())
}

func TestRemoteTrack_StallDisablesTrack(t *testing.T) {
	reader := newFakeReader()
	track := newRemoteTrack(audioInfo("a1"), reader, testLogger())

	resumed := make(chan bool, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		track.read(20*time.Millisecond, remoteTrackHandlers{onResumed: func() { resumed <- track.Enabled() }})
	}()

	assert.Eventually(t, func() bool { return !track.Enabled() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, rtc.TrackStateLive, track.State())

	reader.packets <- &rtp.Packet{}
	select {
	case enabled := <-resumed:
		assert.True(t, enabled)
	case <-time.After(time.Second):
		require.FailNow(t, "track did not resume")
	}

	reader.finish(io.EOF)
	<-done
	assert.Equal(t, rtc.TrackStateEnded, track.State())
}

func TestRemoteStream(t *testing.T) {
	stream := newRemoteStream("stream")
	observer := &countingObserver{}
	stream.RegisterObserver(observer)

	audio := newRemoteTrack(audioInfo("a1"), newFakeReader(), testLogger())
	video := newRemoteTrack(webrtc_ext.TrackInfo{TrackID: "v1", Kind: mediastream.KindVideo}, newFakeReader(), testLogger())

	stream.addTrack(audio)
	stream.addTrack(video)
	assert.Equal(t, 2, observer.changes())

	require.Len(t, stream.AudioTracks(), 1)
	require.Len(t, stream.VideoTracks(), 1)
	assert.Equal(t, "a1", stream.AudioTracks()[0].ID())
	assert.Equal(t, rtc.ForeignTrack(video), stream.FindVideoTrack("v1"))
	assert.Nil(t, stream.FindAudioTrack("v1"))
	assert.Nil(t, stream.FindVideoTrack("missing"))

	assert.Equal(t, 1, stream.removeTrack(audio))
	assert.Equal(t, 1, stream.removeTrack(audio), "removing twice does not notify")
	assert.Equal(t, 3, observer.changes())

	stream.UnregisterObserver(observer)
	assert.Equal(t, 0, stream.removeTrack(video))
	assert.Equal(t, 3, observer.changes())
}
