package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhiyeduru/mentlearn-api/internal/dto"
	"github.com/abhiyeduru/mentlearn-api/internal/middleware"
	"github.com/abhiyeduru/mentlearn-api/internal/models"
	"github.com/abhiyeduru/mentlearn-api/internal/service"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/response"
	"github.com/abhiyeduru/mentlearn-api/pkg/storage"
)

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) response.Envelope {
	t.Helper()
	env := response.Envelope{Data: data}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type sessionServiceMock struct {
	sessions []models.Session
	actor    models.Actor
	isLive   *bool
	err      error
}

func (m *sessionServiceMock) ListActive(ctx context.Context) ([]models.Session, error) {
	return m.sessions, m.err
}

func (m *sessionServiceMock) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionSummary, *models.Pagination, error) {
	return nil, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, m.err
}

func (m *sessionServiceMock) Stats(ctx context.Context) (*models.SessionStats, error) {
	return &models.SessionStats{}, m.err
}

func (m *sessionServiceMock) Get(ctx context.Context, id string) (*models.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Session{ID: id}, nil
}

func (m *sessionServiceMock) Create(ctx context.Context, actor models.Actor, req service.CreateSessionRequest) (*models.Session, error) {
	m.actor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &models.Session{ID: "session-1", Title: req.Title, IsActive: true}, nil
}

func (m *sessionServiceMock) Update(ctx context.Context, actor models.Actor, id string, req service.UpdateSessionRequest) (*models.Session, error) {
	return &models.Session{ID: id}, m.err
}

func (m *sessionServiceMock) ToggleActive(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	return &models.Session{ID: id}, m.err
}

func (m *sessionServiceMock) ToggleLive(ctx context.Context, actor models.Actor, id string) (*models.Session, error) {
	return &models.Session{ID: id, IsLive: true}, m.err
}

func (m *sessionServiceMock) SetLive(ctx context.Context, actor models.Actor, id string, isLive bool) (*models.Session, error) {
	m.isLive = &isLive
	return &models.Session{ID: id, IsLive: isLive}, m.err
}

func (m *sessionServiceMock) Delete(ctx context.Context, actor models.Actor, id string) error {
	return m.err
}

func TestSessionHandlerListActive(t *testing.T) {
	svc := &sessionServiceMock{sessions: []models.Session{{ID: "session-1", Title: "React Basics", IsActive: true}}}
	handler := NewSessionHandler(svc)

	c, w := newGinContext(http.MethodGet, "/sessions/active", nil)
	handler.ListActive(c)

	require.Equal(t, http.StatusOK, w.Code)
	var sessions []models.Session
	decodeEnvelope(t, w, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, "React Basics", sessions[0].Title)
}

func TestSessionHandlerCreatePassesActor(t *testing.T) {
	svc := &sessionServiceMock{}
	handler := NewSessionHandler(svc)

	payload, _ := json.Marshal(service.CreateSessionRequest{Title: "React Basics", InstructorName: "Asha", Date: "2026-11-01", Time: "18:00"})
	c, w := newGinContext(http.MethodPost, "/sessions", payload)
	c.Set(middleware.ContextUserKey, adminClaims)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.actor.UserID)
	assert.Equal(t, models.RoleAdmin, svc.actor.Role)
}

func TestSessionHandlerRejectsMalformedJSON(t *testing.T) {
	handler := NewSessionHandler(&sessionServiceMock{})

	c, w := newGinContext(http.MethodPost, "/sessions", []byte("{"))
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerSetLive(t *testing.T) {
	svc := &sessionServiceMock{}
	handler := NewSessionHandler(svc)

	c, w := newGinContext(http.MethodPut, "/sessions/session-1/live", []byte(`{"is_live":false}`))
	c.Params = gin.Params{{Key: "id", Value: "session-1"}}
	c.Set(middleware.ContextUserKey, adminClaims)
	handler.SetLive(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.isLive)
	assert.False(t, *svc.isLive)

	c, w = newGinContext(http.MethodPut, "/sessions/session-1/live", []byte(`{}`))
	handler.SetLive(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerListRejectsBadBool(t *testing.T) {
	handler := NewSessionHandler(&sessionServiceMock{})

	c, w := newGinContext(http.MethodGet, "/sessions?active=maybe", nil)
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerMapsErrors(t *testing.T) {
	cases := map[error]int{
		appErrors.Clone(appErrors.ErrNotFound, "session not found"): http.StatusNotFound,
		appErrors.Persistence(assert.AnError, "store down"):          http.StatusServiceUnavailable,
		appErrors.ErrForbidden:                                       http.StatusForbidden,
	}
	for err, status := range cases {
		handler := NewSessionHandler(&sessionServiceMock{err: err})
		c, w := newGinContext(http.MethodDelete, "/sessions/x", nil)
		c.Params = gin.Params{{Key: "id", Value: "x"}}
		handler.Delete(c)
		assert.Equal(t, status, w.Code)
	}
}

type registrationServiceMock struct {
	submitted service.SubmitRegistrationRequest
	filter    models.RegistrationFilter
	status    string
	err       error
}

func (m *registrationServiceMock) Submit(ctx context.Context, req service.SubmitRegistrationRequest) (*models.Registration, error) {
	m.submitted = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Registration{ID: "reg-1", SessionID: req.SessionID, Status: models.RegistrationStatusPending}, nil
}

func (m *registrationServiceMock) List(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	m.filter = filter
	return []models.Registration{}, &models.Pagination{Page: 1, PageSize: 20}, m.err
}

func (m *registrationServiceMock) SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) (*models.Registration, error) {
	m.status = rawStatus
	if m.err != nil {
		return nil, m.err
	}
	return &models.Registration{ID: id, Status: models.RegistrationStatus(rawStatus)}, nil
}

func (m *registrationServiceMock) RegistrationsCSV(ctx context.Context, actor models.Actor, filter models.RegistrationFilter) (*service.ExportFile, error) {
	m.filter = filter
	if m.err != nil {
		return nil, m.err
	}
	return &service.ExportFile{Filename: "registrations_2026-10-15.csv", ContentType: "text/csv; charset=utf-8", Data: []byte(`"Name"`)}, nil
}

func TestRegistrationHandlerSubmit(t *testing.T) {
	svc := &registrationServiceMock{}
	handler := NewRegistrationHandler(svc, svc)

	payload := []byte(`{"session_id":"session-1","full_name":"Ravi","email":"ravi@example.com","phone":"9000"}`)
	c, w := newGinContext(http.MethodPost, "/registrations", payload)
	handler.Submit(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "session-1", svc.submitted.SessionID)
	var reg models.Registration
	decodeEnvelope(t, w, &reg)
	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
}

func TestRegistrationHandlerListParsesFilters(t *testing.T) {
	svc := &registrationServiceMock{}
	handler := NewRegistrationHandler(svc, svc)

	c, w := newGinContext(http.MethodGet, "/registrations?sessionId=s1&status=Confirmed&search=ravi&page=2&limit=5", nil)
	c.Set(middleware.ContextUserKey, adminClaims)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", svc.filter.SessionID)
	assert.Equal(t, models.RegistrationStatusConfirmed, svc.filter.Status)
	assert.Equal(t, "ravi", svc.filter.Search)
	assert.Equal(t, 2, svc.filter.Page)
	assert.Equal(t, 5, svc.filter.PageSize)
}

func TestRegistrationHandlerSetStatus(t *testing.T) {
	svc := &registrationServiceMock{}
	handler := NewRegistrationHandler(svc, svc)

	c, w := newGinContext(http.MethodPatch, "/registrations/reg-1/status", []byte(`{"status":"contacted"}`))
	c.Params = gin.Params{{Key: "id", Value: "reg-1"}}
	handler.SetStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "contacted", svc.status)

	c, w = newGinContext(http.MethodPatch, "/registrations/reg-1/status", []byte(`{}`))
	handler.SetStatus(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationHandlerExportCSV(t *testing.T) {
	svc := &registrationServiceMock{}
	handler := NewRegistrationHandler(svc, svc)

	c, w := newGinContext(http.MethodGet, "/registrations/export.csv?status=pending", nil)
	c.Set(middleware.ContextUserKey, adminClaims)
	handler.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="registrations_2026-10-15.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, `"Name"`, w.Body.String())
	assert.Equal(t, models.RegistrationStatusPending, svc.filter.Status)
}

type exportServiceMock struct {
	job      *models.ExportJob
	download *service.ExportDownload
	err      error
}

func (m *exportServiceMock) Enqueue(ctx context.Context, actor models.Actor, req dto.ExportRequest) (*models.ExportJob, error) {
	return m.job, m.err
}

func (m *exportServiceMock) Status(ctx context.Context, actor models.Actor, id string) (*models.ExportJob, error) {
	return m.job, m.err
}

func (m *exportServiceMock) ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error) {
	return m.download, m.err
}

func TestExportHandlerCreateAndStatus(t *testing.T) {
	svc := &exportServiceMock{job: &models.ExportJob{ID: "job-1", Format: models.ExportFormatCSV, Status: models.ExportStatusQueued}}
	handler := NewExportHandler(svc)

	c, w := newGinContext(http.MethodPost, "/exports", []byte(`{"format":"csv"}`))
	c.Set(middleware.ContextUserKey, adminClaims)
	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)

	url := "/api/v1/exports/download/token"
	svc.job.Status = models.ExportStatusFinished
	svc.job.ResultURL = &url
	c, w = newGinContext(http.MethodGet, "/exports/job-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ExportJobResponse
	decodeEnvelope(t, w, &resp)
	assert.Equal(t, models.ExportStatusFinished, resp.Status)
	require.NotNil(t, resp.ResultURL)
	assert.Equal(t, url, *resp.ResultURL)
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job-1.csv")
	require.NoError(t, os.WriteFile(path, []byte(`"Name"`), 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	handler := NewExportHandler(&exportServiceMock{download: &service.ExportDownload{
		File:      file,
		Filename:  "job-1.csv",
		Format:    models.ExportFormatCSV,
		ExpiresAt: time.Now().Add(time.Hour),
	}})
	c, w := newGinContext(http.MethodGet, "/exports/download/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `"Name"`, w.Body.String())

	denied := NewExportHandler(&exportServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")})
	c, w = newGinContext(http.MethodGet, "/exports/download/bad", nil)
	denied.Download(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

type leadServiceMock struct {
	kind models.LeadKind
	err  error
}

func (m *leadServiceMock) Submit(ctx context.Context, kind models.LeadKind, req service.SubmitLeadRequest) (*models.Lead, error) {
	m.kind = kind
	return &models.Lead{ID: "lead-1", Kind: kind}, m.err
}

func (m *leadServiceMock) List(ctx context.Context, actor models.Actor, filter models.LeadFilter) ([]models.Lead, *models.Pagination, error) {
	return []models.Lead{}, &models.Pagination{}, m.err
}

func (m *leadServiceMock) SetStatus(ctx context.Context, actor models.Actor, id, rawStatus string) error {
	return m.err
}

func TestLeadHandlerRoutesKinds(t *testing.T) {
	svc := &leadServiceMock{}
	handler := NewLeadHandler(svc)
	payload := []byte(`{"full_name":"Priya","email":"priya@example.com","phone":"9000","organization":"Acme"}`)

	c, w := newGinContext(http.MethodPost, "/leads/partner", payload)
	handler.SubmitPartner(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.LeadKindPartner, svc.kind)

	c, w = newGinContext(http.MethodPost, "/leads/callback", payload)
	handler.SubmitCallback(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.LeadKindCallback, svc.kind)

	c, w = newGinContext(http.MethodPatch, "/leads/lead-1/status", []byte(`{"status":"confirmed"}`))
	handler.SetStatus(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type mediaServiceMock struct {
	kind storage.MediaKind
	body []byte
}

func (m *mediaServiceMock) Limit(kind storage.MediaKind) int64 { return 64 }

func (m *mediaServiceMock) Upload(ctx context.Context, actor models.Actor, kind storage.MediaKind, filename, contentType string, size int64, body io.Reader) (*service.MediaUpload, error) {
	m.kind = kind
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	m.body = data
	key := "media/" + string(kind) + "/abc.png"
	return &service.MediaUpload{URL: "https://media.example.com/" + key, Key: key, Kind: kind, ContentType: contentType, Size: size}, nil
}

func multipartRequest(t *testing.T, kind string, content []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("kind", kind))
	part, err := writer.CreateFormFile("file", "banner.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	c, w := newGinContext(http.MethodPost, "/media", buf.Bytes())
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Set(middleware.ContextUserKey, adminClaims)
	return c, w
}

func TestMediaHandlerUpload(t *testing.T) {
	svc := &mediaServiceMock{}
	handler := NewMediaHandler(svc)

	c, w := multipartRequest(t, "Image", []byte("png-bytes"))
	handler.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, storage.MediaKindImage, svc.kind)
	assert.Equal(t, []byte("png-bytes"), svc.body)
	var resp dto.MediaUploadResponse
	decodeEnvelope(t, w, &resp)
	assert.Equal(t, "https://media.example.com/media/image/abc.png", resp.URL)
}

func TestMediaHandlerRejectsOversizedBody(t *testing.T) {
	handler := NewMediaHandler(&mediaServiceMock{})

	c, w := multipartRequest(t, "image", bytes.Repeat([]byte("x"), multipartOverhead+128))
	handler.Upload(c)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	healthy := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
	})
	c, w := newGinContext(http.MethodGet, "/ready", nil)
	healthy.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := NewMetricsHandler(nil, map[string]ReadinessCheck{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return assert.AnError },
	})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	degraded.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis"`)
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordRegistration(true)
	handler := NewMetricsHandler(metrics, nil)

	c, w := newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "session_registrations_total")
}
