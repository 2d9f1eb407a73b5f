package peer

import (
	"sync"

	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"golang.org/x/exp/slices"
)

// Remote tracks grouped by the stream id announced in the SDP (msid).
type remoteStream struct {
	observerList

	id string

	mutex  sync.Mutex
	tracks []*remoteTrack
}

func newRemoteStream(id string) *remoteStream {
	return &remoteStream{id: id}
}

func (s *remoteStream) ID() string {
	return s.id
}

func (s *remoteStream) AudioTracks() []rtc.ForeignTrack {
	return s.tracksOf(mediastream.KindAudio)
}

func (s *remoteStream) VideoTracks() []rtc.ForeignTrack {
	return s.tracksOf(mediastream.KindVideo)
}

func (s *remoteStream) FindAudioTrack(id string) rtc.ForeignTrack {
	return s.find(mediastream.KindAudio, id)
}

func (s *remoteStream) FindVideoTrack(id string) rtc.ForeignTrack {
	return s.find(mediastream.KindVideo, id)
}

func (s *remoteStream) tracksOf(kind mediastream.Kind) []rtc.ForeignTrack {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tracks := []rtc.ForeignTrack{}
	for _, track := range s.tracks {
		if track.Kind() == kind {
			tracks = append(tracks, track)
		}
	}

	return tracks
}

// Returns an untyped nil if there is no such track.
func (s *remoteStream) find(kind mediastream.Kind, id string) rtc.ForeignTrack {
	if track := s.track(kind, id); track != nil {
		return track
	}

	return nil
}

func (s *remoteStream) track(kind mediastream.Kind, id string) *remoteTrack {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	index := slices.IndexFunc(s.tracks, func(track *remoteTrack) bool {
		return track.Kind() == kind && track.ID() == id
	})
	if index == -1 {
		return nil
	}

	return s.tracks[index]
}

// Adds the track and notifies the observers.
func (s *remoteStream) addTrack(track *remoteTrack) {
	s.mutex.Lock()
	s.tracks = append(s.tracks, track)
	s.mutex.Unlock()

	s.notifyChanged()
}

// Removes the track and notifies the observers. Returns the number of tracks left.
func (s *remoteStream) removeTrack(track *remoteTrack) int {
	s.mutex.Lock()
	index := slices.Index(s.tracks, track)
	if index != -1 {
		s.tracks = slices.Delete(s.tracks, index, index+1)
	}
	left := len(s.tracks)
	s.mutex.Unlock()

	if index != -1 {
		s.notifyChanged()
	}

	return left
}
