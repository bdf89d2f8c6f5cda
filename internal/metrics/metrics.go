package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})
	EventsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_events_emitted_total",
		Help: "Events fanned out to a room, by event name",
	}, []string{"event"})
	EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_events_dropped_total",
		Help: "Events dropped because no routing target was set",
	})
	StreamDLQ = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "realtime_stream_dlq_total",
		Help: "Domain events pushed to the dead-letter topic",
	})
)

func Init() {
	prometheus.MustRegister(Connections, EventsEmitted, EventsDropped, StreamDLQ)
}

// Handler returns the scrape handler; mounted on its own listener in main.
func Handler() http.Handler {
	return promhttp.Handler()
}
