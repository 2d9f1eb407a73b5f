package mediastream

import (
	"sync"

	"golang.org/x/exp/slices"
)

// Stream is the engine's record of a remote media stream, i.e. an ordered
// collection of audio tracks and an ordered collection of video tracks.
// Tracks are kept in the order in which they were added.
type Stream struct {
	id string

	mutex  sync.RWMutex
	tracks map[Kind][]*Track
}

// Creates a stream from the given tracks. Tracks of the wrong kind in either
// slice are filed under their own kind.
func NewStream(id string, audio, video []*Track) *Stream {
	stream := &Stream{
		id:     id,
		tracks: make(map[Kind][]*Track),
	}

	for _, track := range append(slices.Clone(audio), video...) {
		stream.AddRemoteTrack(track)
	}

	return stream
}

func (s *Stream) ID() string {
	return s.id
}

// Returns a snapshot of the tracks of the given kind.
func (s *Stream) Tracks(kind Kind) []*Track {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return slices.Clone(s.tracks[kind])
}

func (s *Stream) AudioTracks() []*Track {
	return s.Tracks(KindAudio)
}

func (s *Stream) VideoTracks() []*Track {
	return s.Tracks(KindVideo)
}

func (s *Stream) NumberOfTracks(kind Kind) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.tracks[kind])
}

func (s *Stream) NumberOfAudioTracks() int {
	return s.NumberOfTracks(KindAudio)
}

func (s *Stream) NumberOfVideoTracks() int {
	return s.NumberOfTracks(KindVideo)
}

// Appends a track to the list of its kind. Adding the same track twice is a no-op.
func (s *Stream) AddRemoteTrack(track *Track) {
	if track == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if slices.Contains(s.tracks[track.Kind()], track) {
		return
	}

	s.tracks[track.Kind()] = append(s.tracks[track.Kind()], track)
}

// Removes the given track (by identity). Returns `false` if the track was not part of the stream.
func (s *Stream) RemoveRemoteTrack(track *Track) bool {
	if track == nil {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	tracks := s.tracks[track.Kind()]
	index := slices.Index(tracks, track)
	if index == -1 {
		return false
	}

	s.tracks[track.Kind()] = slices.Delete(tracks, index, index+1)
	return true
}
