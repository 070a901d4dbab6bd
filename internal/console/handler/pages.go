package handler

import (
	"embed"
	"net/http"
)

//go:embed pages/*.html
var pages embed.FS

// PageHandler отдает статические страницы как есть.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Index — форма создания заявки.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	serveFile(w, r, "pages/index.html")
}

// Update — страница просмотра, смены статуса и удаления заявок.
func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	serveFile(w, r, "pages/update.html")
}

func serveFile(w http.ResponseWriter, r *http.Request, name string) {
	data, err := pages.ReadFile(name)
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	w.Header().Set(ContentType, "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
