package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form"
	"github.com/xela07ax/reqtrack/internal/console/service"
	"github.com/xela07ax/reqtrack/internal/domain"
	"github.com/xela07ax/reqtrack/internal/export"
	"go.uber.org/zap"
)

// RequestService Описываем, что нам нужно от сервиса
type RequestService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*domain.Request, error)
	Get(ctx context.Context, id string) ([]domain.Request, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, status string) (*domain.Request, error)
	Export(ctx context.Context, format string) (*export.File, error)
}

// ExportObserver учитывает выгрузки. Реализуется метриками.
type ExportObserver interface {
	ObserveExport(format string)
}

const (
	msgSubmitted      = "Form submitted successfully!"
	msgSubmitFailed   = "Error occurred while submitting the form!"
	msgDeleted        = "Request deleted successfully!"
	msgStatusUpdated  = "Status updated successfully!"
	maxStatusBodySize = 1 << 10
	maxFormMemory     = 1 << 20
)

type RequestHandler struct {
	service RequestService
	exports ExportObserver
	decoder *form.Decoder
	logger  *zap.Logger
}

func NewRequestHandler(s RequestService, exports ExportObserver, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		service: s,
		exports: exports,
		decoder: form.NewDecoder(),
		logger:  logger.Named("request-handler"),
	}
}

// Submit принимает HTML-форму создания заявки.
// POST /submit
func (h *RequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	// Форма может прийти как urlencoded, так и multipart
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}

	var in service.SubmitInput
	if err := h.decoder.Decode(&in, r.PostForm); err != nil {
		writeText(w, http.StatusBadRequest, "invalid form")
		return
	}

	if _, err := h.service.Submit(r.Context(), in); err != nil {
		code := HTTPStatus(err)
		if code == http.StatusBadRequest {
			writeText(w, code, publicMessage(err))
			return
		}
		h.logger.Error("submit failed", traceField(r.Context()), zap.Error(err))
		writeText(w, code, msgSubmitFailed)
		return
	}

	writeText(w, http.StatusOK, msgSubmitted)
}

// Get возвращает все заявки ("all") или одну по id.
// GET /api/v1/requests/{id}
func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	list, err := h.service.Get(r.Context(), id)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("get failed", traceField(r.Context()), zap.String("id", id), zap.Error(err))
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, successResponse{Status: "success", Data: list})
}

// Delete удаляет заявку.
// DELETE /api/v1/requests/{id}
func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("delete failed", traceField(r.Context()), zap.String("id", id), zap.Error(err))
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, successResponse{Status: "success", Message: msgDeleted})
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus меняет статус заявки.
// PATCH /api/v1/requests/{id}
func (h *RequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxStatusBodySize)).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorResponse{Status: "error", Message: "invalid request body"})
		return
	}

	if _, err := h.service.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("status update failed", traceField(r.Context()), zap.String("id", id), zap.Error(err))
		}
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, successResponse{Status: "success", Message: msgStatusUpdated})
}

// Download отдает выгрузку всех заявок файлом.
// GET /download?format=csv|xlsx
func (h *RequestHandler) Download(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	file, err := h.service.Export(r.Context(), format)
	if err != nil {
		if domain.KindOf(err) == domain.KindInternal {
			h.logger.Error("export failed", traceField(r.Context()), zap.Error(err))
		}
		writeError(w, h.logger, err)
		return
	}

	if h.exports != nil {
		if format == "" {
			format = string(export.FormatCSV)
		}
		h.exports.ObserveExport(format)
	}

	w.Header().Set(ContentType, file.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		h.logger.Warn("export write interrupted", zap.Error(err))
	}
}

func writeText(w http.ResponseWriter, code int, msg string) {
	w.Header().Set(ContentType, TextPlain)
	w.WriteHeader(code)
	_, _ = w.Write([]byte(msg))
}
