package application

import (
	"strings"
	"time"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/job"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	switch status {
	case StatusPending, StatusAccepted, StatusRejected:
		return status, true
	default:
		return "", false
	}
}

type Application struct {
	ID          common.UUID  `json:"id"`
	JobID       common.UUID  `json:"jobId"`
	ApplicantID string       `json:"userId"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Message     string       `json:"message,omitempty"`
	ResumeURL   string       `json:"resumeUrl"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Job         *job.Summary `json:"job,omitempty"`
}

// Filter selects applications. A non-nil JobIDs restricts results to that
// set, so an empty non-nil slice matches nothing.
type Filter struct {
	JobID       common.UUID
	JobIDs      []common.UUID
	ApplicantID string
	Status      Status
}
