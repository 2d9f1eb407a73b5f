package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rtcbridge"

var (
	remoteStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stream",
		Name:      "remote_total",
		Help:      "Remote streams currently observed.",
	})
	remoteTracks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "track",
		Name:      "remote_total",
		Help:      "Remote tracks currently mirrored into local records.",
	}, []string{"kind"})
	diffPasses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "diff",
		Name:      "passes_total",
		Help:      "Track diff passes that resolved a single addition or removal.",
	}, []string{"kind", "op"})
	diffMismatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "diff",
		Name:      "mismatches_total",
		Help:      "Diff passes that found no differing track despite a count mismatch.",
	}, []string{"kind"})
	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "notifications_total",
		Help:      "Notifications received from the WebRTC stack.",
	}, []string{"type"})
	unimplemented = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "connection",
		Name:      "unimplemented_total",
		Help:      "Notifications that have no handler.",
	}, []string{"type"})
	rtpPackets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "track",
		Name:      "rtp_packets_total",
		Help:      "RTP packets read from remote tracks.",
	}, []string{"kind"})
)

// Registry that holds all the collectors of the bridge.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		remoteStreams,
		remoteTracks,
		diffPasses,
		diffMismatches,
		notifications,
		unimplemented,
		rtpPackets,
	)
}

// HTTP handler that exposes the metrics of the bridge.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RemoteStreamAdded() {
	remoteStreams.Inc()
}

func RemoteStreamRemoved() {
	remoteStreams.Dec()
}

func RemoteTrackAdded(kind string) {
	remoteTracks.WithLabelValues(kind).Inc()
}

func RemoteTrackRemoved(kind string) {
	remoteTracks.WithLabelValues(kind).Dec()
}

func DiffPass(kind, op string) {
	diffPasses.WithLabelValues(kind, op).Inc()
}

func DiffMismatch(kind string) {
	diffMismatches.WithLabelValues(kind).Inc()
}

func Notification(notificationType string) {
	notifications.WithLabelValues(notificationType).Inc()
}

func Unimplemented(notificationType string) {
	unimplemented.WithLabelValues(notificationType).Inc()
}

func RTPPacketReceived(kind string) {
	rtpPackets.WithLabelValues(kind).Inc()
}
