package backend

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "live",
		Subsystem: "sessions",
		Help:      "Number of live sessions.",
	})

	packetsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "packets_sent",
		Subsystem: "sessions",
		Help:      "Total packets written to clients.",
	})

	whisperCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "whispers",
		Subsystem: "sessions",
		Help:      "Total whispers delivered.",
	})

	presenceNotifyCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "notifications",
		Subsystem: "presence",
		Help:      "Total presence notifications dispatched.",
	})

	roomCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:      "live",
		Subsystem: "rooms",
		Help:      "Number of rooms with at least one member.",
	})
)

func init() {
	prometheus.MustRegister(sessionCount)
	prometheus.MustRegister(packetsSent)
	prometheus.MustRegister(whisperCount)
	prometheus.MustRegister(presenceNotifyCount)
	prometheus.MustRegister(roomCount)
}
