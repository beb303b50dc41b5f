package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/telemetry"
)

const (
	SubjectApplicationSubmitted     = "applications.submitted"
	SubjectApplicationStatusChanged = "applications.status_changed"
)

var tracer = telemetry.Tracer("jobboard/events")

// ApplicationEvent is published after an application is created or its
// status changes. Notification workers (status e-mails) consume it.
type ApplicationEvent struct {
	ApplicationID  string    `json:"applicationId"`
	JobID          string    `json:"jobId"`
	JobTitle       string    `json:"jobTitle"`
	ApplicantID    string    `json:"applicantId"`
	ApplicantName  string    `json:"applicantName"`
	ApplicantEmail string    `json:"applicantEmail"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	ActorID        string    `json:"actorId,omitempty"`
	RequestID      string    `json:"requestId,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, subject string, event ApplicationEvent) error
	Close()
}

type natsConn interface {
	Publish(subject string, data []byte) error
	Close()
}

type natsPublisher struct {
	conn   natsConn
	logger *zap.Logger
}

func Connect(url string, timeout time.Duration, logger *zap.Logger) (Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("jobboard-api"),
		nats.Timeout(timeout),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return NewPublisher(conn, logger), nil
}

func NewPublisher(conn natsConn, logger *zap.Logger) Publisher {
	return &natsPublisher{conn: conn, logger: logger}
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, event ApplicationEvent) error {
	_, span := tracer.Start(ctx, "PublishApplicationEvent")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("marshal application event: %w", err)
	}
	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)
	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug("published application event",
		zap.String("subject", subject),
		zap.String("application_id", event.ApplicationID))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Nop drops events; used when no NATS url is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, ApplicationEvent) error { return nil }
func (Nop) Close()                                                  {}
