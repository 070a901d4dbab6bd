package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xela07ax/reqtrack/internal/notify"
)

type Metrics struct {
	// Latency: сколько времени заняла обработка HTTP-запроса
	RequestDuration *prometheus.HistogramVec

	// Traffic: общее кол-во запросов по маршрутам и кодам
	TotalRequests *prometheus.CounterVec

	// Notifications: исходы отправки писем (sent, failed)
	Notifications *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker почты (0 - ок, 1 - выбило)
	MailCircuitOpen prometheus.Gauge

	// Exports: выгрузки по форматам
	Exports *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reqtrack_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),

		TotalRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "reqtrack_http_requests_total",
			Help: "Total number of processed HTTP requests.",
		}, []string{"method", "route", "code"}),

		Notifications: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "reqtrack_notifications_total",
			Help: "Email notification attempts by subject and outcome.",
		}, []string{"subject", "outcome"}),

		MailCircuitOpen: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "reqtrack_mail_circuit_breaker_open",
			Help: "Current state of the mail circuit breaker (0=closed, 1=open).",
		}),

		Exports: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "reqtrack_exports_total",
			Help: "Number of generated exports by format.",
		}, []string{"format"}),
	}
}

// ObserveNotification реализует notify.Observer.
func (m *Metrics) ObserveNotification(subject string, outcome notify.Outcome) {
	m.Notifications.WithLabelValues(subject, string(outcome)).Inc()
}

func (m *Metrics) SetMailCircuitOpen(open bool) {
	if open {
		m.MailCircuitOpen.Set(1)
		return
	}
	m.MailCircuitOpen.Set(0)
}

func (m *Metrics) ObserveExport(format string) {
	m.Exports.WithLabelValues(format).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути,
// чтобы id заявок не раздували кардинальность.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.TotalRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
