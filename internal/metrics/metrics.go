package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service owns the prometheus registry and every collector the server
// exposes on /metrics.
type Service struct {
	registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	connectedClients prometheus.Gauge
	eventsBroadcast  *prometheus.CounterVec
	eventsDropped    prometheus.Counter
}

func NewService() *Service {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "status"})

	connectedClients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "Currently connected websocket clients.",
	})

	eventsBroadcast := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "room_events_broadcast_total",
		Help: "Events fanned out to room members, by kind.",
	}, []string{"kind"})

	eventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "room_events_dropped_total",
		Help: "Events dropped because a client send buffer was full.",
	})

	registry.MustRegister(
		requestDuration,
		requestTotal,
		connectedClients,
		eventsBroadcast,
		eventsDropped,
	)

	return &Service{
		registry:         registry,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		connectedClients: connectedClients,
		eventsBroadcast:  eventsBroadcast,
		eventsDropped:    eventsDropped,
	}
}

func (s *Service) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	s.requestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(method, path, code).Inc()
}

func (s *Service) ClientConnected()    { s.connectedClients.Inc() }
func (s *Service) ClientDisconnected() { s.connectedClients.Dec() }

func (s *Service) EventBroadcast(kind string, receivers int) {
	s.eventsBroadcast.WithLabelValues(kind).Add(float64(receivers))
}

func (s *Service) EventDropped() { s.eventsDropped.Inc() }

func (s *Service) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
