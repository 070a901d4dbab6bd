package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/reqtrack/internal/console/handler"
	"github.com/xela07ax/reqtrack/internal/metrics"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router  *chi.Mux
	logger  *zap.Logger
	metrics *metrics.Metrics
	gather  prometheus.Gatherer

	pageHandler    *handler.PageHandler    // /, /update
	requestHandler *handler.RequestHandler // /submit, /api/v1/requests, /download
}

// NewConsoleServer собирает роутер сервиса заявок со всеми зависимостями
func NewConsoleServer(
	logger *zap.Logger,
	m *metrics.Metrics,
	gather prometheus.Gatherer,
	pageH *handler.PageHandler,
	requestH *handler.RequestHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		metrics:        m,
		gather:         gather,
		pageHandler:    pageH,
		requestHandler: requestH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handler.TracingMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	// --- 2. Служебные роуты ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.gather != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	}

	// --- 3. Статические страницы ---
	r.Get("/", s.pageHandler.Index)
	r.Get("/update", s.pageHandler.Update)

	// --- 4. Заявки ---
	r.Post("/submit", s.requestHandler.Submit)
	r.Get("/download", s.requestHandler.Download)

	r.Route("/api/v1/requests", func(r chi.Router) {
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.requestHandler.Get)             // "all" или конкретный id
			r.Delete("/", s.requestHandler.Delete)       // Безвозвратное удаление
			r.Patch("/", s.requestHandler.UpdateStatus) // In progress | Completed
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
