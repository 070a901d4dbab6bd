package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TraceHeader = "X-Trace-ID"

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const traceIDKey ctxKey = "trace_id"

// TracingMiddleware присваивает каждому запросу Trace-ID и возвращает его клиенту
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Пришел от прокси или от страницы, иначе генерируем
		id := r.Header.Get(TraceHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(TraceHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), traceIDKey, id)))
	})
}

func traceField(ctx context.Context) zap.Field {
	id, _ := ctx.Value(traceIDKey).(string)
	return zap.String("trace_id", id)
}
