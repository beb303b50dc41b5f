package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/domain/identity"
	"github.com/Dest1on/jobboard/internal/domain/job"
	"github.com/Dest1on/jobboard/internal/telemetry"
)

type CreateJobInput struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
}

type JobService struct {
	repo      job.Repository
	analytics analytics.Repository
	logger    *zap.Logger
}

func NewJobService(repo job.Repository, analytics analytics.Repository, logger *zap.Logger) *JobService {
	return &JobService{repo: repo, analytics: analytics, logger: logger}
}

func (s *JobService) Create(ctx context.Context, principal identity.Principal, input CreateJobInput) (*job.Job, error) {
	ctx, span := tracer.Start(ctx, "JobService.Create")
	defer span.End()

	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	j := job.Job{
		Title:       strings.TrimSpace(input.Title),
		Company:     strings.TrimSpace(input.Company),
		Location:    strings.TrimSpace(input.Location),
		Description: strings.TrimSpace(input.Description),
		PostedBy:    strings.TrimSpace(principal.ID),
	}
	fields := map[string]string{}
	if j.Title == "" {
		fields["title"] = "title is required"
	}
	if j.Company == "" {
		fields["company"] = "company is required"
	}
	if j.Location == "" {
		fields["location"] = "location is required"
	}
	if j.Description == "" {
		fields["description"] = "description is required"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid job", fields)
	}

	created, err := s.repo.Create(ctx, j)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(telemetry.String("job.id", created.ID.String()))
	track(ctx, s.analytics, s.logger, analytics.Event{Name: "job.created", UserID: principal.ID, Payload: analyticsPayload(ctx, map[string]string{"job_id": created.ID.String()})})
	return created, nil
}

func (s *JobService) Get(ctx context.Context, id string) (*job.Job, error) {
	jobID, err := parseID(id, "job")
	if err != nil {
		return nil, err
	}
	return s.load(ctx, jobID)
}

func (s *JobService) List(ctx context.Context, filter job.Filter, page job.Page) (*job.ListResult, error) {
	ctx, span := tracer.Start(ctx, "JobService.List")
	defer span.End()

	page = page.Normalize()
	filter = job.Filter{
		Query:    strings.TrimSpace(filter.Query),
		Location: strings.TrimSpace(filter.Location),
		Company:  strings.TrimSpace(filter.Company),
		PostedBy: strings.TrimSpace(filter.PostedBy),
	}
	items, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if items == nil {
		items = []job.Job{}
	}
	span.SetAttributes(telemetry.Int("jobs.total", total))
	return &job.ListResult{
		Items:    items,
		Total:    total,
		Page:     page.Skip/page.Limit + 1,
		PageSize: page.Limit,
	}, nil
}

// TransferOwnership hands a job to another poster. Only the current owner
// may do so.
func (s *JobService) TransferOwnership(ctx context.Context, principal identity.Principal, id, newOwner string) (*job.Job, error) {
	ctx, span := tracer.Start(ctx, "JobService.TransferOwnership")
	defer span.End()

	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	newOwner = strings.TrimSpace(newOwner)
	if newOwner == "" {
		return nil, common.NewValidationError("invalid owner", map[string]string{"postedBy": "postedBy is required"})
	}
	jobID, err := parseID(id, "job")
	if err != nil {
		return nil, err
	}
	current, err := job.GetConsistent(ctx, s.repo, jobID)
	if err != nil {
		return nil, asJobNotFound(err)
	}
	if current.PostedBy != principal.ID {
		return nil, common.NewError(common.CodeForbidden, "job belongs to another poster", nil)
	}
	if current.PostedBy == newOwner {
		return current, nil
	}
	updated, err := s.repo.UpdateOwner(ctx, jobID, newOwner)
	if err != nil {
		span.RecordError(err)
		return nil, asJobNotFound(err)
	}
	track(ctx, s.analytics, s.logger, analytics.Event{Name: "job.owner_transferred", UserID: principal.ID, Payload: analyticsPayload(ctx, map[string]string{"job_id": jobID.String(), "posted_by": newOwner})})
	return updated, nil
}

func (s *JobService) load(ctx context.Context, id common.UUID) (*job.Job, error) {
	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, asJobNotFound(err)
	}
	return found, nil
}

func parseID(value, entity string) (common.UUID, error) {
	id, err := common.ParseUUID(value)
	if err != nil {
		return "", common.NewError(common.CodeInvalidID, "invalid "+entity+" id", err)
	}
	return id, nil
}

func asJobNotFound(err error) error {
	if common.IsNotFound(err) && !common.Is(err, common.CodeJobNotFound) {
		return common.NewError(common.CodeJobNotFound, "job not found", err)
	}
	return err
}

func asApplicationNotFound(err error) error {
	if common.IsNotFound(err) && !common.Is(err, common.CodeApplicationNotFound) {
		return common.NewError(common.CodeApplicationNotFound, "application not found", err)
	}
	return err
}
