package application

import (
	"context"

	"github.com/Dest1on/jobboard/internal/common"
)

// Repository persists applications. Create must fail with
// common.CodeDuplicateApplication when the (job, applicant) pair exists,
// enforced by the storage itself.
type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	FindByJobAndApplicant(ctx context.Context, jobID common.UUID, applicantID string) (*Application, error)
	Find(ctx context.Context, filter Filter) ([]Application, error)
	UpdateStatus(ctx context.Context, id common.UUID, status Status) (*Application, error)
	ResumeReferenced(ctx context.Context, resumeURL string) (bool, error)
}
