package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/database"
	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/domain/identity"
	"github.com/Dest1on/jobboard/internal/events"
	"github.com/Dest1on/jobboard/internal/http/handlers"
	"github.com/Dest1on/jobboard/internal/http/metrics"
	httpmw "github.com/Dest1on/jobboard/internal/http/middleware"
	"github.com/Dest1on/jobboard/internal/repository/sqlrepo"
	"github.com/Dest1on/jobboard/internal/security"
	"github.com/Dest1on/jobboard/internal/storage"
)

type testServer struct {
	handler http.Handler
	tokens  *security.JWTProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	db, err := database.Open(context.Background(), database.Config{Driver: "sqlite3", DSN: dsn}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.Migrate(context.Background(), db, "sqlite3")
	require.NoError(t, err)

	sink, err := storage.NewLocal(t.TempDir(), "http://localhost/uploads")
	require.NoError(t, err)

	jobRepo := sqlrepo.NewJobRepository(db, sqlrepo.SQLite)
	appRepo := sqlrepo.NewApplicationRepository(db, sqlrepo.SQLite)
	collector := metrics.NewCollector()
	tokens := security.NewJWTProvider("test-secret", "jobboard")

	router := NewRouter(RouterDependencies{
		JobHandler:         handlers.NewJobHandler(app.NewJobService(jobRepo, analytics.Discard{}, logger)),
		ApplicationHandler: handlers.NewApplicationHandler(app.NewApplicationService(appRepo, jobRepo, sink, events.Nop{}, analytics.Discard{}, logger), collector),
		AuthMiddleware:     httpmw.NewAuthMiddleware(tokens),
		Metrics:            collector,
		Logger:             logger,
		RequestTimeout:     30 * time.Second,
		Uploads:            http.StripPrefix("/uploads", sink.Handler()),
	})
	return &testServer{handler: router, tokens: tokens}
}

func (s *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := s.tokens.Generate(identity.Principal{ID: userID}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(t, userID))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, path string, body any, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return s.do(t, req, userID)
}

func (s *testServer) createJob(t *testing.T, owner, title string) string {
	t.Helper()
	rec := s.doJSON(t, http.MethodPost, "/jobs", map[string]string{
		"title": title, "company": "Acme", "location": "Remote", "description": "Build the platform",
	}, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created.ID
}

func pdf(size int) []byte {
	data := bytes.Repeat([]byte("x"), size)
	copy(data, "%PDF-1.4\n")
	return data
}

func multipartSubmission(t *testing.T, fields map[string]string, filename string, resume []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if resume != nil {
		part, err := writer.CreateFormFile("resume", filename)
		require.NoError(t, err)
		_, err = part.Write(resume)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/applications", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

type applicationEnvelope struct {
	Message     string `json:"message"`
	Application struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		UserID    string `json:"userId"`
		ResumeURL string `json:"resumeUrl"`
		Job    *struct {
			Title string `json:"title"`
		} `json:"job"`
	} `json:"application"`
}

type errorEnvelope struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestApplicationWorkflowEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	jobID := srv.createJob(t, "owner-1", "Backend Engineer")

	fields := map[string]string{"job": jobID, "name": "Dana", "email": "dana@example.com", "message": "Hi"}
	rec := srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(4096)), "user-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decodeBody[applicationEnvelope](t, rec)
	assert.Equal(t, "Application submitted", submitted.Message)
	assert.Equal(t, "pending", submitted.Application.Status)
	assert.Equal(t, "user-1", submitted.Application.UserID)

	rec = srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(4096)), "user-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_application", decodeBody[errorEnvelope](t, rec).Code)

	update := map[string]string{"applicationId": submitted.Application.ID, "status": "accepted"}
	rec = srv.doJSON(t, http.MethodPatch, "/applications", update, "user-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.doJSON(t, http.MethodPatch, "/admin/applications", update, "owner-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[applicationEnvelope](t, rec)
	assert.Equal(t, "Status updated", updated.Message)
	assert.Equal(t, "accepted", updated.Application.Status)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/applications", nil), "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decodeBody[[]struct {
		Status string `json:"status"`
	}](t, rec)
	require.Len(t, mine, 1)
	assert.Equal(t, "accepted", mine[0].Status)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/admin/applications", nil), "owner-1")
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decodeBody[[]struct {
		Job struct {
			Title string `json:"title"`
		} `json:"job"`
	}](t, rec)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Backend Engineer", inbox[0].Job.Title)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/applications?postedBy=me", nil), "owner-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]json.RawMessage](t, rec), 1)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/applications?id="+submitted.Application.ID, nil), "user-3")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Contains(t, rec.Body.String(), "jobboard_applications_submitted_total 1")
}

func TestSubmitRequiresAuthAndOwnIdentity(t *testing.T) {
	srv := newTestServer(t)
	jobID := srv.createJob(t, "owner-1", "SRE")
	fields := map[string]string{"job": jobID, "name": "Dana", "email": "dana@example.com"}

	rec := srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(128)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	fields["userId"] = "someone-else"
	rec = srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(128)), "user-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	delete(fields, "userId")
	rec = srv.do(t, multipartSubmission(t, fields, "", nil), "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorEnvelope](t, rec).Fields, "resume")

	fields["job"] = "not-a-uuid"
	rec = srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(128)), "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decodeBody[errorEnvelope](t, rec).Code)
}

func TestSubmitAcceptsBase64JSON(t *testing.T) {
	srv := newTestServer(t)
	jobID := srv.createJob(t, "owner-1", "SRE")

	rec := srv.doJSON(t, http.MethodPost, "/applications", map[string]any{
		"jobId":  jobID,
		"name":   "Dana",
		"email":  "dana@example.com",
		"resume": map[string]any{"filename": "cv.pdf", "data": pdf(256)},
	}, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestResumeSizeBoundaryOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	jobID := srv.createJob(t, "owner-1", "SRE")
	fields := map[string]string{"job": jobID, "name": "Dana", "email": "dana@example.com"}

	rec := srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(app.MaxResumeSize)), "user-1")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, multipartSubmission(t, fields, "cv.pdf", pdf(app.MaxResumeSize+1)), "user-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "upload_failed", decodeBody[errorEnvelope](t, rec).Code)
}

func TestJobListingPagination(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 55; i++ {
		srv.createJob(t, "owner-1", fmt.Sprintf("Job %02d", i))
	}

	type page struct {
		Items    []json.RawMessage `json:"items"`
		Total    int               `json:"total"`
		Page     int               `json:"page"`
		PageSize int               `json:"pageSize"`
	}

	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	first := decodeBody[page](t, rec)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, 55, first.Total)
	assert.Equal(t, 1, first.Page)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs?limit=500&skip=-3", nil), "")
	clamped := decodeBody[page](t, rec)
	assert.Len(t, clamped.Items, 50)
	assert.Equal(t, 50, clamped.PageSize)
	assert.Equal(t, 1, clamped.Page)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs?skip=50&limit=25", nil), "")
	last := decodeBody[page](t, rec)
	assert.Len(t, last.Items, 5)
	assert.Equal(t, 3, last.Page)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs?q=job%2005", nil), "")
	assert.Equal(t, 1, decodeBody[page](t, rec).Total)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs?id=nope", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateJobValidationAndTransfer(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.doJSON(t, http.MethodPost, "/jobs", map[string]string{"title": "x"}, "owner-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[errorEnvelope](t, rec).Fields, "company")

	rec = srv.doJSON(t, http.MethodPost, "/jobs", map[string]string{"title": "x", "company": "y", "location": "z", "description": "d", "postedBy": "owner-2"}, "owner-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	jobID := srv.createJob(t, "owner-1", "SRE")
	rec = srv.doJSON(t, http.MethodPatch, "/admin/jobs/owner", map[string]string{"jobId": jobID, "postedBy": "owner-2"}, "owner-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/jobs?postedBy=me", nil), "owner-2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), jobID)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, httptest.NewRequest(http.MethodGet, "/health", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, "/nowhere", nil), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadsServeObjectsButNotListings(t *testing.T) {
	srv := newTestServer(t)
	jobID := srv.createJob(t, "owner-1", "SRE")
	fields := map[string]string{"job": jobID, "name": "Dana", "email": "dana@example.com"}
	rec := srv.do(t, multipartSubmission(t, fields, "dana cv.pdf", pdf(512)), "user-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resumeURL, err := url.Parse(decodeBody[applicationEnvelope](t, rec).Application.ResumeURL)
	require.NoError(t, err)

	rec = srv.do(t, httptest.NewRequest(http.MethodGet, resumeURL.EscapedPath(), nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pdf(512), rec.Body.Bytes())

	for _, listing := range []string{"/uploads/", "/uploads/resumes/", "/uploads/resumes"} {
		rec = srv.do(t, httptest.NewRequest(http.MethodGet, listing, nil), "")
		assert.Equal(t, http.StatusNotFound, rec.Code, listing)
		assert.NotContains(t, rec.Body.String(), "href", listing)
	}
}
