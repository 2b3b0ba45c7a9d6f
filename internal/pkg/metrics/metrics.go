package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	verificationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_attempts_total",
			Help: "Verification attempts by factor and result.",
		},
		[]string{"factor", "result"},
	)

	checkIns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_check_ins_total",
			Help: "Persisted check-ins by derived status.",
		},
		[]string{"status"},
	)

	checkOuts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_check_outs_total",
			Help: "Persisted check-outs.",
		},
	)

	liveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "attendance_live_streams",
			Help: "Open SSE elapsed-session streams.",
		},
	)
)

// Init registers the collectors with the default registry.
func Init() {
	prometheus.MustRegister(verificationAttempts, checkIns, checkOuts, liveStreams)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveVerification(factor, result string) {
	verificationAttempts.WithLabelValues(factor, result).Inc()
}

func ObserveCheckIn(status string) {
	checkIns.WithLabelValues(status).Inc()
}

func ObserveCheckOut() {
	checkOuts.Inc()
}

func LiveStreamOpened() { liveStreams.Inc() }
func LiveStreamClosed() { liveStreams.Dec() }
