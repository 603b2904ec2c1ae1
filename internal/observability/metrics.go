package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "transport",
			Name:      "frames_total",
			Help:      "Frames moved over session connections.",
		},
		[]string{"direction"},
	)
	frameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "transport",
			Name:      "frame_bytes_total",
			Help:      "Payload bytes moved over session connections.",
		},
		[]string{"direction"},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "transport",
			Name:      "frame_errors_total",
			Help:      "Frame read/write failures.",
		},
		[]string{"direction"},
	)
	commandsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "session",
			Name:      "commands_total",
			Help:      "Commands executed by the host dispatcher.",
		},
		[]string{"kind", "outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caseroom",
			Subsystem: "session",
			Name:      "command_duration_seconds",
			Help:      "Dispatcher execution time in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	playersConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "caseroom",
			Subsystem: "session",
			Name:      "players_connected",
			Help:      "Players currently joined to the hosted session.",
		},
	)
	discoveryPackets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "discovery",
			Name:      "packets_total",
			Help:      "Presence packets sent or received, by result.",
		},
		[]string{"direction", "result"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caseroom",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesTotal,
			frameBytes,
			frameErrors,
			commandsDispatched,
			commandDuration,
			playersConnected,
			discoveryPackets,
			httpRequests,
		)
	})
}

func RecordFrame(direction string, n int) {
	RegisterMetrics()
	framesTotal.WithLabelValues(direction).Inc()
	frameBytes.WithLabelValues(direction).Add(float64(n))
}

func RecordFrameError(direction string) {
	RegisterMetrics()
	frameErrors.WithLabelValues(direction).Inc()
}

func RecordCommand(kind, outcome string, duration time.Duration) {
	RegisterMetrics()
	commandsDispatched.WithLabelValues(kind, outcome).Inc()
	commandDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func SetPlayersConnected(n int) {
	RegisterMetrics()
	playersConnected.Set(float64(n))
}

func RecordDiscoveryPacket(direction, result string) {
	RegisterMetrics()
	discoveryPackets.WithLabelValues(direction, result).Inc()
}

func RecordHTTPRequest(method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
