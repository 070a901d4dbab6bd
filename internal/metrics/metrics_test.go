package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/reqtrack/internal/notify"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/requests/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/requests/"+id, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TotalRequests.WithLabelValues("GET", "/api/v1/requests/{id}", "404")))
}

func TestNotificationAndBreakerMetrics(t *testing.T) {
	m := New(nil)

	m.ObserveNotification("New Request Assigned", notify.OutcomeSent)
	m.ObserveNotification("New Request Assigned", notify.OutcomeFailed)
	m.ObserveNotification("New Request Assigned", notify.OutcomeFailed)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues("New Request Assigned", "failed")))

	m.SetMailCircuitOpen(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MailCircuitOpen))
	m.SetMailCircuitOpen(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MailCircuitOpen))

	m.ObserveExport("csv")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Exports.WithLabelValues("csv")))
}
