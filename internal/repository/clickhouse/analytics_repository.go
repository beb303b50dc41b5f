package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/Dest1on/jobboard/internal/domain/analytics"
)

type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

const createEventsTable = `CREATE TABLE IF NOT EXISTS analytics_events (
	name String,
	user_id String,
	payload Map(String, String),
	occurred_at DateTime64(3, 'UTC')
) ENGINE = MergeTree()
ORDER BY (name, occurred_at)`

const insertEvent = `INSERT INTO analytics_events (name, user_id, payload, occurred_at) VALUES (?, ?, ?, ?)`

type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

type AnalyticsRepository struct {
	conn execer
}

// Open connects over the native protocol and makes sure the events table
// exists.
func Open(ctx context.Context, opts Options) (clickhouse.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	if err := conn.Exec(ctx, createEventsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create analytics table: %w", err)
	}
	return conn, nil
}

func NewAnalyticsRepository(conn execer) *AnalyticsRepository {
	return &AnalyticsRepository{conn: conn}
}

func (r *AnalyticsRepository) Create(ctx context.Context, event analytics.Event) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	payload := event.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	if err := r.conn.Exec(ctx, insertEvent, event.Name, event.UserID, payload, occurredAt); err != nil {
		return fmt.Errorf("insert analytics event %s: %w", event.Name, err)
	}
	return nil
}
