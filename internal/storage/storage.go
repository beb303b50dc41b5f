// Package storage holds the resume upload sinks. A sink turns raw bytes into
// a durable, retrievable URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRejected marks uploads refused by the sink for policy reasons (size,
// type, naming). Any other upload error means the sink is unavailable.
var ErrRejected = errors.New("storage: object rejected")

const resumePrefix = "resumes"

type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

type StoredObject struct {
	Key       string
	URL       string
	CreatedAt time.Time
}

type Sink interface {
	Upload(ctx context.Context, obj Object) (string, error)
	Delete(ctx context.Context, url string) error
	List(ctx context.Context) ([]StoredObject, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResumeKey builds a collision free object key that keeps a readable
// version of the uploaded file name.
func ResumeKey(filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "_.")
	if base == "" {
		base = "resume"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return fmt.Sprintf("%s/%d_%s_%s", resumePrefix, now.UnixNano(), uuid.NewString()[:8], base)
}
