package job

import (
	"time"

	"github.com/Dest1on/jobboard/internal/common"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type Job struct {
	ID          common.UUID `json:"id"`
	Title       string      `json:"title"`
	Company     string      `json:"company"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	PostedBy    string      `json:"postedBy"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Summary is the subset of a job embedded in application listings.
type Summary struct {
	ID        common.UUID `json:"id"`
	Title     string      `json:"title"`
	Company   string      `json:"company"`
	Location  string      `json:"location"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (j Job) Summary() *Summary {
	return &Summary{ID: j.ID, Title: j.Title, Company: j.Company, Location: j.Location, CreatedAt: j.CreatedAt}
}

type Filter struct {
	Query    string
	Location string
	Company  string
	PostedBy string
}

type Page struct {
	Skip  int
	Limit int
}

// Normalize clamps the page to the service bounds.
func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

type ListResult struct {
	Items    []Job `json:"items"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}
