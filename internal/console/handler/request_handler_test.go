package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/reqtrack/internal/console/service"
	"github.com/xela07ax/reqtrack/internal/domain"
	"github.com/xela07ax/reqtrack/internal/export"
	"go.uber.org/zap"
)

type stubService struct {
	submitted []service.SubmitInput
	err       error
	list      []domain.Request
	file      *export.File
	lastID    string
	status    string
}

func (s *stubService) Submit(_ context.Context, in service.SubmitInput) (*domain.Request, error) {
	s.submitted = append(s.submitted, in)
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Request{ID: "1"}, nil
}

func (s *stubService) Get(_ context.Context, id string) ([]domain.Request, error) {
	s.lastID = id
	return s.list, s.err
}

func (s *stubService) Delete(_ context.Context, id string) error {
	s.lastID = id
	return s.err
}

func (s *stubService) UpdateStatus(_ context.Context, id, status string) (*domain.Request, error) {
	s.lastID, s.status = id, status
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Request{ID: id, Status: domain.RequestStatus(status)}, nil
}

func (s *stubService) Export(_ context.Context, format string) (*export.File, error) {
	return s.file, s.err
}

type countingExports struct{ formats []string }

func (c *countingExports) ObserveExport(format string) { c.formats = append(c.formats, format) }

func newRouter(svc RequestService, exports ExportObserver) http.Handler {
	h := NewRequestHandler(svc, exports, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/submit", h.Submit)
	r.Get("/api/v1/requests/{id}", h.Get)
	r.Delete("/api/v1/requests/{id}", h.Delete)
	r.Patch("/api/v1/requests/{id}", h.UpdateStatus)
	r.Get("/download", h.Download)
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func submitRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHTTPStatusTable(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(domain.Validation("op", domain.ErrInvalidStatus)))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(domain.NotFound("op")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(domain.Internal("op", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("unclassified")))
}

func TestSubmitDecodesForm(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newRouter(svc, nil), submitRequest(url.Values{
		"description":    {"Fix bug"},
		"status":         {""},
		"assigner_email": {"a@x.com"},
		"assignee_email": {"b@x.com"},
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Form submitted successfully!", rec.Body.String())
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, service.SubmitInput{
		Description:   "Fix bug",
		AssignerEmail: "a@x.com",
		AssigneeEmail: "b@x.com",
	}, svc.submitted[0])
}

func TestSubmitDecodesMultipartForm(t *testing.T) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, kv := range [][2]string{
		{"description", "Fix bug"},
		{"assigner_email", "a@x.com"},
		{"assignee_email", "b@x.com"},
	} {
		require.NoError(t, mw.WriteField(kv[0], kv[1]))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	svc := &stubService{}
	rec := do(t, newRouter(svc, nil), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.submitted, 1)
	assert.Equal(t, "Fix bug", svc.submitted[0].Description)
	assert.Equal(t, "b@x.com", svc.submitted[0].AssigneeEmail)
}

func TestSubmitFailures(t *testing.T) {
	svc := &stubService{err: domain.Internal("submit", errors.New("mongo: no reachable servers"))}
	rec := do(t, newRouter(svc, nil), submitRequest(url.Values{"description": {"x"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error occurred while submitting the form!", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "mongo")

	svc.err = domain.Validation("submit", errors.New("assignee_email is required"))
	rec = do(t, newRouter(svc, nil), submitRequest(url.Values{"description": {"x"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "assignee_email is required")
}

func TestGetEnvelope(t *testing.T) {
	svc := &stubService{list: []domain.Request{{ID: "abc", Description: "Fix bug", Status: domain.StatusOpen}}}
	rec := do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/api/v1/requests/all", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all", svc.lastID)
	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	data := body["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, "abc", data[0].(map[string]interface{})["_id"])
}

func TestGetEmptyListIsArray(t *testing.T) {
	svc := &stubService{list: []domain.Request{}}
	rec := do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/api/v1/requests/all", nil))

	assert.JSONEq(t, `{"status":"success","data":[]}`, rec.Body.String())
}

func TestGetErrors(t *testing.T) {
	svc := &stubService{err: domain.NotFound("get")}
	rec := do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/api/v1/requests/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Request not found"}`, rec.Body.String())

	svc.err = domain.Internal("get", errors.New("the provided hex string is not a valid ObjectID"))
	rec = do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/api/v1/requests/zzz", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", decode(t, rec)["status"])
	assert.NotContains(t, rec.Body.String(), "ObjectID")
}

func TestDelete(t *testing.T) {
	svc := &stubService{}
	rec := do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodDelete, "/api/v1/requests/abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.lastID)
	assert.Equal(t, "Request deleted successfully!", decode(t, rec)["message"])

	svc.err = domain.NotFound("delete")
	rec = do(t, newRouter(svc, nil), httptest.NewRequest(http.MethodDelete, "/api/v1/requests/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	svc := &stubService{}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/abc", strings.NewReader(`{"status":"Completed"}`))
	rec := do(t, newRouter(svc, nil), req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", svc.lastID)
	assert.Equal(t, "Completed", svc.status)
	assert.Equal(t, "success", decode(t, rec)["status"])
}

func TestUpdateStatusBadBody(t *testing.T) {
	svc := &stubService{}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/abc", strings.NewReader(`{status:`))
	rec := do(t, newRouter(svc, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.lastID, "service must not be called")
}

func TestUpdateStatusValidation(t *testing.T) {
	svc := &stubService{err: domain.Validation("update_status", domain.ErrInvalidStatus)}
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/requests/abc", strings.NewReader(`{"status":"Done"}`))
	rec := do(t, newRouter(svc, nil), req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["message"], "invalid status")
}

func TestDownload(t *testing.T) {
	exports := &countingExports{}
	svc := &stubService{file: &export.File{
		Name:        "request_data.csv",
		ContentType: "text/csv; charset=utf-8",
		Data:        []byte("_id,description\n1,Fix bug\n"),
	}}
	rec := do(t, newRouter(svc, exports), httptest.NewRequest(http.MethodGet, "/download", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename=request_data.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "_id,description\n1,Fix bug\n", rec.Body.String())
	assert.Equal(t, []string{"csv"}, exports.formats)
}

func TestDownloadUnknownFormat(t *testing.T) {
	exports := &countingExports{}
	svc := &stubService{err: domain.Validation("export", export.ErrUnknownFormat)}
	rec := do(t, newRouter(svc, exports), httptest.NewRequest(http.MethodGet, "/download?format=pdf", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, exports.formats)
}

func TestPages(t *testing.T) {
	p := NewPageHandler()

	rec := httptest.NewRecorder()
	p.Index(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/submit"`)

	rec = httptest.NewRecorder()
	p.Update(rec, httptest.NewRequest(http.MethodGet, "/update", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/requests/")
}

func TestTracingMiddleware(t *testing.T) {
	var seen zap.Field
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = traceField(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(TraceHeader))
	assert.Equal(t, "abc-123", seen.String)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(TraceHeader), 36)
	assert.Equal(t, rec.Header().Get(TraceHeader), seen.String)
}
