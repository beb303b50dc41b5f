package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/http/metrics"
	"github.com/Dest1on/jobboard/internal/http/response"
	"github.com/Dest1on/jobboard/internal/observability"
)

const RequestIDHeader = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is outermost.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = observability.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observability.WithRequestID(r.Context(), id)))
	})
}

func Logging(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapWriter(w)
			next.ServeHTTP(rw, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", observability.RequestIDFromContext(r.Context())),
			}
			if rw.err == nil {
				logger.Info("request", fields...)
				return
			}
			fields = append(fields, zap.Error(rw.err))
			if rw.Status() >= http.StatusInternalServerError {
				if appErr, ok := common.As(rw.err); ok && len(appErr.Stack) > 0 {
					fields = append(fields, zap.ByteString("stack", appErr.Stack))
				}
				logger.Error("request failed", fields...)
				return
			}
			logger.Info("request rejected", fields...)
		})
	}
}

// BodyLimit caps request bodies; limit picks the cap per request.
func BodyLimit(limit func(*http.Request) int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit(r))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Recover(logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("request_id", observability.RequestIDFromContext(r.Context())))
					response.Error(w, common.NewError(common.CodeInternal, "internal server error", fmt.Errorf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func Metrics(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			rw := wrapWriter(w)
			start := time.Now()
			collector.RequestStarted()
			next.ServeHTTP(rw, r)
			collector.RequestFinished(r.Method, canonicalPath(r.URL.Path), rw.Status(), time.Since(start))
			if rw.err != nil {
				code := common.CodeInternal
				if appErr, ok := common.As(rw.err); ok {
					code = appErr.Code
				}
				collector.ErrorResponse(string(code))
			}
		})
	}
}

// Timeout bounds the request context; uploads and store calls observe it.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// canonicalPath keeps the path label bounded.
func canonicalPath(path string) string {
	switch path {
	case "/health", "/jobs", "/applications", "/admin/applications", "/admin/jobs/owner":
		return path
	}
	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads"
	}
	return "other"
}
