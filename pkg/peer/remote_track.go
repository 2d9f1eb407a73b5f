package peer

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/nix-port/rtcbridge/pkg/common"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/nix-port/rtcbridge/pkg/metrics"
	"github.com/nix-port/rtcbridge/pkg/rtc"
	"github.com/nix-port/rtcbridge/pkg/webrtc_ext"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// The part of `webrtc.TrackRemote` that is used to consume the media.
type rtpReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Callbacks of a remote track. All of them are optional.
type remoteTrackHandlers struct {
	// Called once the track starts delivering media again after a stall.
	onResumed func()
	// Called when the track is over, `err` is nil if the track ended normally.
	onFinished func(err error)
}

// A remote track as seen by the connection observer.
type remoteTrack struct {
	observerList

	info   webrtc_ext.TrackInfo
	reader rtpReader
	logger *logrus.Entry

	mutex   sync.Mutex
	enabled bool
	state   rtc.TrackState
}

// Pion only reports a track once its first packet has arrived, so the track starts live.
func newRemoteTrack(info webrtc_ext.TrackInfo, reader rtpReader, logger *logrus.Entry) *remoteTrack {
	return &remoteTrack{
		info:    info,
		reader:  reader,
		logger:  logger.WithFields(logrus.Fields{"track_id": info.TrackID, "kind": info.Kind}),
		enabled: true,
		state:   rtc.TrackStateLive,
	}
}

func (t *remoteTrack) ID() string {
	return t.info.TrackID
}

func (t *remoteTrack) Kind() mediastream.Kind {
	return t.info.Kind
}

func (t *remoteTrack) Enabled() bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.enabled
}

func (t *remoteTrack) State() rtc.TrackState {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.state
}

// Updates the track and notifies the observers if anything changed.
func (t *remoteTrack) update(enabled bool, state rtc.TrackState) {
	t.mutex.Lock()
	changed := t.enabled != enabled || t.state != state
	t.enabled, t.state = enabled, state
	t.mutex.Unlock()

	if changed {
		t.notifyChanged()
	}
}

// Reads the media until the track is over. A track that does not deliver any packet for
// `stallTimeout` is reported as disabled until the next packet arrives. Zero disables the
// stall detection. Blocks, so it's meant to be run in its own goroutine.
func (t *remoteTrack) read(stallTimeout time.Duration, handlers remoteTrackHandlers) {
	var stalled sync.Mutex
	isStalled := false

	var watchdog *common.Watchdog
	if stallTimeout > 0 {
		watchdog = common.NewWatchdog(stallTimeout, func() {
			stalled.Lock()
			defer stalled.Unlock()

			if !isStalled {
				isStalled = true
				t.logger.Warn("no RTP packets received for a while")
				t.update(false, t.State())
			}
		})
		watchdog.Start()
		defer watchdog.Close()
	}

	for {
		if _, _, err := t.reader.ReadRTP(); err != nil {
			t.finish(err, handlers.onFinished)
			return
		}

		metrics.RTPPacketReceived(t.info.Kind.String())

		if watchdog != nil {
			watchdog.Notify()

			stalled.Lock()
			resumed := isStalled
			isStalled = false
			stalled.Unlock()

			if resumed {
				t.logger.Info("RTP packets flowing again")
				t.update(true, t.State())
				if handlers.onResumed != nil {
					handlers.onResumed()
				}
			}
		}
	}
}

func (t *remoteTrack) finish(err error, onFinished func(error)) {
	if errors.Is(err, io.EOF) {
		t.logger.Info("remote track ended")
		t.update(t.Enabled(), rtc.TrackStateEnded)
		err = nil
	} else {
		t.logger.WithError(err).Error("failed to read from remote track")
		t.update(t.Enabled(), rtc.TrackStateFailed)
	}

	if onFinished != nil {
		onFinished(err)
	}
}
