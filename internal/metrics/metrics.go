package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecorelais/delivery-backend/internal/domain/valueobject"
)

const namespace = "ecorelais"

// Metrics: счётчики приложения. Реализует mission.Observer.
type Metrics struct {
	missionTransitions *prometheus.CounterVec
	transferFailures   prometheus.Counter
	rateLimitExceeded  prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	gatherer           prometheus.Gatherer
}

// New регистрирует метрики в reg. gatherer используется для /metrics.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		missionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mission_transitions_total",
			Help:      "Total number of mission status transitions by target status",
		}, []string{"status"}),
		transferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partner_transfer_failures_total",
			Help:      "Total number of failed partner transfers left pending",
		}),
		rateLimitExceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Total number of rejected HTTP requests due to rate limiting",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		gatherer: gatherer,
	}

	for _, c := range []prometheus.Collector{
		m.missionTransitions, m.transferFailures, m.rateLimitExceeded, m.httpRequests, m.httpDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) MissionTransitioned(to valueobject.MissionStatus) {
	m.missionTransitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) TransferFailed() {
	m.transferFailures.Inc()
}

func (m *Metrics) RateLimited() {
	m.rateLimitExceeded.Inc()
}

// ObserveRequest фиксирует завершённый HTTP-запрос. route: шаблон маршрута gin.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler отдаёт метрики в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// TrackConnectedUsers регистрирует gauge с числом пользователей, подключённых по WebSocket.
func TrackConnectedUsers(reg prometheus.Registerer, count func() int) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connected_users",
		Help:      "Number of users with an open WebSocket session",
	}, func() float64 { return float64(count()) })
	if err := reg.Register(gauge); err != nil {
		return fmt.Errorf("metrics: register ws gauge: %w", err)
	}
	return nil
}
