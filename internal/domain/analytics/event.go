package analytics

import (
	"context"
	"time"
)

type Event struct {
	Name       string
	UserID     string
	Payload    map[string]string
	OccurredAt time.Time
}

type Repository interface {
	Create(ctx context.Context, event Event) error
}

// Discard drops every event. Used when no analytics store is configured.
type Discard struct{}

func (Discard) Create(context.Context, Event) error { return nil }
