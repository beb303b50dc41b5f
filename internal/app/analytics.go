package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/observability"
	"github.com/Dest1on/jobboard/internal/telemetry"
)

var tracer = telemetry.Tracer("jobboard/app")

func analyticsPayload(ctx context.Context, payload map[string]string) map[string]string {
	if payload == nil {
		payload = map[string]string{}
	}
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	return payload
}

// track records an analytics event; failures are logged and otherwise ignored.
func track(ctx context.Context, repo analytics.Repository, logger *zap.Logger, event analytics.Event) {
	if err := repo.Create(ctx, event); err != nil {
		logger.Warn("analytics event dropped", zap.String("event", event.Name), zap.Error(err))
	}
}
