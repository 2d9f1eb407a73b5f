package rtc_test

import (
	"fmt"
	"sync"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/pion/webrtc/v3"
	"golang.org/x/exp/slices"
)

// Observer bookkeeping shared by the fake foreign objects.
type observers struct {
	mutex sync.Mutex
	list  []rtc.Observer
}

func (o *observers) RegisterObserver(observer rtc.Observer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.list = append(o.list, observer)
}

func (o *observers) UnregisterObserver(observer rtc.Observer) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if index := slices.Index(o.list, observer); index != -1 {
		o.list = slices.Delete(o.list, index, index+1)
	}
}

func (o *observers) count() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.list)
}

func (o *observers) notify() {
	o.mutex.Lock()
	list := slices.Clone(o.list)
	o.mutex.Unlock()

	for _, observer := range list {
		observer.OnChanged()
	}
}

type fakeTrack struct {
	observers
	id   string
	kind mediastream.Kind

	mutex   sync.Mutex
	enabled bool
	state   rtc.TrackState
}

func newFakeTrack(id string, kind mediastream.Kind) *fakeTrack {
	return &fakeTrack{id: id, kind: kind, enabled: true, state: rtc.TrackStateLive}
}

func (t *fakeTrack) ID() string             { return t.id }
func (t *fakeTrack) Kind() mediastream.Kind { return t.kind }

func (t *fakeTrack) Enabled() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.enabled
}

func (t *fakeTrack) State() rtc.TrackState {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.state
}

func (t *fakeTrack) set(enabled bool, state rtc.TrackState) {
	t.mutex.Lock()
	t.enabled, t.state = enabled, state
	t.mutex.Unlock()
	t.notify()
}

type fakeStream struct {
	observers
	id string

	mutex  sync.Mutex
	tracks []*fakeTrack
}

func newFakeStream(id string, tracks ...*fakeTrack) *fakeStream {
	return &fakeStream{id: id, tracks: tracks}
}

func audio(ids ...string) []*fakeTrack {
	tracks := []*fakeTrack{}
	for _, id := range ids {
		tracks = append(tracks, newFakeTrack(id, mediastream.KindAudio))
	}
	return tracks
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) tracksOf(kind mediastream.Kind) []rtc.ForeignTrack {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	result := []rtc.ForeignTrack{}
	for _, track := range s.tracks {
		if track.kind == kind {
			result = append(result, track)
		}
	}
	return result
}

func (s *fakeStream) find(kind mediastream.Kind, id string) rtc.ForeignTrack {
	for _, track := range s.tracksOf(kind) {
		if track.ID() == id {
			return track
		}
	}
	return nil
}

func (s *fakeStream) AudioTracks() []rtc.ForeignTrack { return s.tracksOf(mediastream.KindAudio) }
func (s *fakeStream) VideoTracks() []rtc.ForeignTrack { return s.tracksOf(mediastream.KindVideo) }

func (s *fakeStream) FindAudioTrack(id string) rtc.ForeignTrack {
	return s.find(mediastream.KindAudio, id)
}

func (s *fakeStream) FindVideoTrack(id string) rtc.ForeignTrack {
	return s.find(mediastream.KindVideo, id)
}

// Changes the tracks without notifying the observers.
func (s *fakeStream) add(tracks ...*fakeTrack) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.tracks = append(s.tracks, tracks...)
}

func (s *fakeStream) remove(id string) *fakeTrack {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	index := slices.IndexFunc(s.tracks, func(track *fakeTrack) bool { return track.id == id })
	if index == -1 {
		return nil
	}
	removed := s.tracks[index]
	s.tracks = slices.Delete(s.tracks, index, index+1)
	return removed
}

type fakeCandidate struct {
	init webrtc.ICECandidateInit
}

func (c fakeCandidate) ToJSON() webrtc.ICECandidateInit { return c.init }

// Records every call it receives as a short string.
type recordingClient struct {
	mutex    sync.Mutex
	calls    []string
	streams  []*mediastream.Stream
	channels []*rtc.DataChannelHandler
}

func (c *recordingClient) record(call string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls = append(c.calls, call)
}

func (c *recordingClient) Calls() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return slices.Clone(c.calls)
}

func (c *recordingClient) DidChangeSignalingState(state rtc.SignalingState) {
	c.record("signaling:" + state.String())
}

func (c *recordingClient) DidAddRemoteStream(stream *mediastream.Stream) {
	c.mutex.Lock()
	c.streams = append(c.streams, stream)
	c.mutex.Unlock()
	c.record("add-stream:" + stream.ID())
}

func (c *recordingClient) DidRemoveRemoteStream(stream *mediastream.Stream) {
	c.record("remove-stream:" + stream.ID())
}

func (c *recordingClient) NegotiationNeeded() {
	c.record("negotiation-needed")
}

func (c *recordingClient) DidGenerateICECandidate(candidate *rtc.ICECandidateDescriptor) {
	if candidate == nil {
		c.record("candidate:nil")
		return
	}
	c.record(fmt.Sprintf("candidate:%s|%s|%d", candidate.Candidate, candidate.SDPMid, candidate.SDPMLineIndex))
}

func (c *recordingClient) DidChangeICEGatheringState(state rtc.ICEGatheringState) {
	c.record("gathering:" + state.String())
}

func (c *recordingClient) DidChangeICEConnectionState(state rtc.ICEConnectionState) {
	c.record("ice-connection:" + state.String())
}

func (c *recordingClient) DidAddRemoteDataChannel(channel *rtc.DataChannelHandler) {
	c.mutex.Lock()
	c.channels = append(c.channels, channel)
	c.mutex.Unlock()
	c.record("data-channel:" + channel.Label())
}

func trackIDs(tracks []*mediastream.Track) []string {
	ids := []string{}
	for _, track := range tracks {
		ids = append(ids, track.ID())
	}
	return ids
}

func observedIDs(observers []*rtc.TrackObserver) []string {
	ids := []string{}
	for _, observer := range observers {
		ids = append(ids, observer.ForeignTrack().ID())
	}
	return ids
}
