package http

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/app"
	"github.com/Dest1on/jobboard/internal/http/handlers"
	"github.com/Dest1on/jobboard/internal/http/metrics"
	httpmw "github.com/Dest1on/jobboard/internal/http/middleware"
)

type RouterDependencies struct {
	JobHandler         *handlers.JobHandler
	ApplicationHandler *handlers.ApplicationHandler
	AuthMiddleware     *httpmw.AuthMiddleware
	Metrics            *metrics.Collector
	Logger             *zap.Logger
	RequestTimeout     time.Duration
	// Uploads, when set, serves locally stored resumes under /uploads/.
	Uploads http.Handler
}

type Router struct {
	deps    RouterDependencies
	handler http.Handler
}

const (
	maxBodyBytes = 1 << 20
	// a base64 JSON submission inflates the resume by a third
	maxSubmissionBytes = app.MaxResumeSize*4/3 + maxBodyBytes
)

func NewRouter(deps RouterDependencies) http.Handler {
	r := &Router{deps: deps}
	r.handler = httpmw.Chain(r.baseHandler(),
		httpmw.RequestID,
		httpmw.Logging(deps.Logger),
		httpmw.Metrics(deps.Metrics),
		httpmw.BodyLimit(bodyLimit),
		httpmw.Recover(deps.Logger),
		httpmw.Timeout(deps.RequestTimeout),
	)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func bodyLimit(req *http.Request) int64 {
	if req.Method == http.MethodPost && req.URL.Path == "/applications" {
		return maxSubmissionBytes
	}
	return maxBodyBytes
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics" && r.deps.Metrics != nil:
			r.deps.Metrics.Handler().ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && path == "/jobs":
			r.deps.AuthMiddleware.Optional(http.HandlerFunc(r.deps.JobHandler.List)).ServeHTTP(w, req)
			return
		case req.Method == http.MethodGet && r.deps.Uploads != nil && strings.HasPrefix(path, "/uploads/"):
			r.deps.Uploads.ServeHTTP(w, req)
			return
		}

		switch path {
		case "/jobs", "/applications", "/admin/applications", "/admin/jobs/owner":
			r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(r.handleProtected)).ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path

	switch {
	case req.Method == http.MethodPost && path == "/jobs":
		r.deps.JobHandler.Create(w, req)
		return
	case req.Method == http.MethodPatch && path == "/admin/jobs/owner":
		r.deps.JobHandler.TransferOwner(w, req)
		return
	case req.Method == http.MethodPost && path == "/applications":
		r.deps.ApplicationHandler.Submit(w, req)
		return
	case req.Method == http.MethodGet && path == "/applications":
		r.deps.ApplicationHandler.List(w, req)
		return
	case req.Method == http.MethodGet && path == "/admin/applications":
		r.deps.ApplicationHandler.ListOwned(w, req)
		return
	case req.Method == http.MethodPatch && (path == "/applications" || path == "/admin/applications"):
		r.deps.ApplicationHandler.UpdateStatus(w, req)
		return
	}

	w.Header().Set("Allow", allowedMethods(path))
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

func allowedMethods(path string) string {
	switch path {
	case "/jobs":
		return "GET, POST"
	case "/applications":
		return "GET, POST, PATCH"
	case "/admin/applications":
		return "GET, PATCH"
	default:
		return "PATCH"
	}
}
