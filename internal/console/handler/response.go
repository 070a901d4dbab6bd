package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/reqtrack/internal/domain"
	"go.uber.org/zap"
)

const (
	ContentType     = "Content-Type"
	ApplicationJSON = "application/json"
	TextPlain       = "text/plain; charset=utf-8"
)

type successResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// statusByKind — единственная таблица соответствия классов ошибок HTTP-кодам.
var statusByKind = map[domain.Kind]int{
	domain.KindValidation: http.StatusBadRequest,
	domain.KindNotFound:   http.StatusNotFound,
	domain.KindInternal:   http.StatusInternalServerError,
}

// HTTPStatus возвращает код ответа для ошибки сервиса.
func HTTPStatus(err error) int {
	if code, ok := statusByKind[domain.KindOf(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// publicMessage не раскрывает внутренние причины: детали отказа зависимостей остаются в логе.
func publicMessage(err error) string {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return err.Error()
	case domain.KindNotFound:
		return "Request not found"
	default:
		return "internal server error"
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, code int, v interface{}) {
	w.Header().Set(ContentType, ApplicationJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	writeJSON(w, logger, HTTPStatus(err), errorResponse{Status: "error", Message: publicMessage(err)})
}
