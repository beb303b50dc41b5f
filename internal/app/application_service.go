package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/analytics"
	"github.com/Dest1on/jobboard/internal/domain/application"
	"github.com/Dest1on/jobboard/internal/domain/identity"
	"github.com/Dest1on/jobboard/internal/domain/job"
	"github.com/Dest1on/jobboard/internal/events"
	"github.com/Dest1on/jobboard/internal/observability"
	"github.com/Dest1on/jobboard/internal/storage"
	"github.com/Dest1on/jobboard/internal/telemetry"
)

const cleanupTimeout = 10 * time.Second

type SubmitInput struct {
	JobID       string
	ApplicantID string
	Name        string
	Email       string
	Message     string
	Resume      *Resume
}

type ListFilter struct {
	Status string
	JobID  string
}

type ApplicationService struct {
	repo      application.Repository
	jobs      job.Repository
	sink      storage.Sink
	publisher events.Publisher
	analytics analytics.Repository
	logger    *zap.Logger
	now       func() time.Time
}

func NewApplicationService(repo application.Repository, jobs job.Repository, sink storage.Sink, publisher events.Publisher, analytics analytics.Repository, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{
		repo:      repo,
		jobs:      jobs,
		sink:      sink,
		publisher: publisher,
		analytics: analytics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ApplicationService) Submit(ctx context.Context, in SubmitInput) (*application.Application, error) {
	ctx, span := tracer.Start(ctx, "ApplicationService.Submit")
	defer span.End()

	in.JobID = strings.TrimSpace(in.JobID)
	in.ApplicantID = strings.TrimSpace(in.ApplicantID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := validateSubmit(in); err != nil {
		return nil, err
	}
	jobID, err := parseID(in.JobID, "job")
	if err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.String("job.id", jobID.String()))

	posting, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, asJobNotFound(err)
	}
	if _, err := s.repo.FindByJobAndApplicant(ctx, jobID, in.ApplicantID); err == nil {
		return nil, common.NewError(common.CodeDuplicateApplication, "already applied to this job", nil)
	} else if !common.IsNotFound(err) {
		return nil, err
	}

	contentType, err := checkResume(in.Resume)
	if err != nil {
		return nil, err
	}
	resumeURL, err := s.sink.Upload(ctx, storage.Object{
		Key:         storage.ResumeKey(in.Resume.Filename, s.now()),
		ContentType: contentType,
		Data:        in.Resume.Data,
	})
	if err != nil {
		span.RecordError(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("resume upload interrupted: %w", ctxErr)
		}
		if errors.Is(err, storage.ErrRejected) {
			return nil, common.NewUploadError(http.StatusBadRequest, "resume rejected by storage", err)
		}
		return nil, common.NewUploadError(http.StatusInternalServerError, "resume upload failed", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		s.discardResume(ctx, resumeURL)
		return nil, fmt.Errorf("submission abandoned after upload: %w", ctxErr)
	}

	created, err := s.repo.Create(ctx, application.Application{
		JobID:       jobID,
		ApplicantID: in.ApplicantID,
		Name:        in.Name,
		Email:       in.Email,
		Message:     in.Message,
		ResumeURL:   resumeURL,
		Status:      application.StatusPending,
	})
	if err != nil {
		span.RecordError(err)
		s.discardResume(ctx, resumeURL)
		return nil, err
	}
	created.Job = posting.Summary()

	s.publish(ctx, events.SubjectApplicationSubmitted, created, "", in.ApplicantID)
	track(ctx, s.analytics, s.logger, analytics.Event{Name: "application.submitted", UserID: in.ApplicantID, Payload: analyticsPayload(ctx, map[string]string{"application_id": created.ID.String(), "job_id": jobID.String()})})
	return created, nil
}

func validateSubmit(in SubmitInput) error {
	fields := map[string]string{}
	if in.JobID == "" {
		fields["jobId"] = "jobId is required"
	}
	if in.ApplicantID == "" {
		fields["userId"] = "userId is required"
	}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		fields["email"] = "email must be a valid address"
	}
	if in.Resume == nil || len(in.Resume.Data) == 0 {
		fields["resume"] = "resume is required"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid application", fields)
	}
	return nil
}

// discardResume removes a blob that no application will reference. It runs
// detached from the request so a cancelled request still cleans up.
func (s *ApplicationService) discardResume(ctx context.Context, url string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := s.sink.Delete(cleanupCtx, url); err != nil {
		s.logger.Warn("orphaned resume left in storage", zap.String("resume_url", url), zap.Error(err))
	}
}

func (s *ApplicationService) SetStatus(ctx context.Context, principal identity.Principal, id, status string) (*application.Application, error) {
	ctx, span := tracer.Start(ctx, "ApplicationService.SetStatus")
	defer span.End()

	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	next, ok := application.ParseStatus(status)
	if !ok {
		return nil, common.NewValidationError("invalid status", map[string]string{"status": "status must be pending, accepted, or rejected"})
	}
	appID, err := parseID(id, "application")
	if err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return nil, asApplicationNotFound(err)
	}
	posting, err := job.GetConsistent(ctx, s.jobs, current.JobID)
	if err != nil {
		return nil, asJobNotFound(err)
	}
	if posting.PostedBy != principal.ID {
		return nil, common.NewError(common.CodeForbidden, "application belongs to another poster's job", nil)
	}
	if current.Status == next {
		current.Job = posting.Summary()
		return current, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, appID, next)
	if err != nil {
		span.RecordError(err)
		return nil, asApplicationNotFound(err)
	}
	updated.Job = posting.Summary()
	span.SetAttributes(telemetry.String("application.status", string(next)))

	s.publish(ctx, events.SubjectApplicationStatusChanged, updated, current.Status, principal.ID)
	track(ctx, s.analytics, s.logger, analytics.Event{Name: "application.status_changed", UserID: principal.ID, Payload: analyticsPayload(ctx, map[string]string{"application_id": updated.ID.String(), "status": string(next), "previous_status": string(current.Status)})})
	return updated, nil
}

func (s *ApplicationService) ListForApplicant(ctx context.Context, principal identity.Principal, filter ListFilter) ([]application.Application, error) {
	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	f, err := parseListFilter(filter)
	if err != nil {
		return nil, err
	}
	f.ApplicantID = principal.ID
	return s.find(ctx, f)
}

// ListForOwner returns applications to jobs posted by the principal.
func (s *ApplicationService) ListForOwner(ctx context.Context, principal identity.Principal, filter ListFilter) ([]application.Application, error) {
	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	f, err := parseListFilter(filter)
	if err != nil {
		return nil, err
	}
	owned, err := s.jobs.ListIDsByOwner(ctx, principal.ID)
	if err != nil {
		return nil, err
	}
	if f.JobID != "" {
		if !containsID(owned, f.JobID) {
			return []application.Application{}, nil
		}
		owned = []common.UUID{f.JobID}
	}
	if len(owned) == 0 {
		return []application.Application{}, nil
	}
	f.JobIDs = owned
	return s.find(ctx, f)
}

// Get returns an application to its applicant or to the owner of its job.
func (s *ApplicationService) Get(ctx context.Context, principal identity.Principal, id string) (*application.Application, error) {
	if principal.Anonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	appID, err := parseID(id, "application")
	if err != nil {
		return nil, err
	}
	found, err := s.repo.GetByID(ctx, appID)
	if err != nil {
		return nil, asApplicationNotFound(err)
	}
	posting, err := job.GetConsistent(ctx, s.jobs, found.JobID)
	if err != nil {
		return nil, asJobNotFound(err)
	}
	if found.ApplicantID != principal.ID && posting.PostedBy != principal.ID {
		return nil, common.NewError(common.CodeForbidden, "application is not visible to this user", nil)
	}
	found.Job = posting.Summary()
	return found, nil
}

func parseListFilter(filter ListFilter) (application.Filter, error) {
	var f application.Filter
	if strings.TrimSpace(filter.Status) != "" {
		status, ok := application.ParseStatus(filter.Status)
		if !ok {
			return f, common.NewValidationError("invalid status", map[string]string{"status": "status must be pending, accepted, or rejected"})
		}
		f.Status = status
	}
	if strings.TrimSpace(filter.JobID) != "" {
		jobID, err := parseID(filter.JobID, "job")
		if err != nil {
			return f, err
		}
		f.JobID = jobID
	}
	return f, nil
}

func (s *ApplicationService) find(ctx context.Context, f application.Filter) ([]application.Application, error) {
	items, err := s.repo.Find(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []application.Application{}, nil
	}
	if err := s.attachJobs(ctx, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *ApplicationService) attachJobs(ctx context.Context, items []application.Application) error {
	seen := map[common.UUID]bool{}
	ids := make([]common.UUID, 0, len(items))
	for _, item := range items {
		if !seen[item.JobID] {
			seen[item.JobID] = true
			ids = append(ids, item.JobID)
		}
	}
	jobs, err := s.jobs.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[common.UUID]job.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	for i := range items {
		if j, ok := byID[items[i].JobID]; ok {
			items[i].Job = j.Summary()
		}
	}
	return nil
}

func (s *ApplicationService) publish(ctx context.Context, subject string, app *application.Application, previous application.Status, actorID string) {
	event := events.ApplicationEvent{
		ApplicationID:  app.ID.String(),
		JobID:          app.JobID.String(),
		ApplicantID:    app.ApplicantID,
		ApplicantName:  app.Name,
		ApplicantEmail: app.Email,
		Status:         string(app.Status),
		PreviousStatus: string(previous),
		ActorID:        actorID,
		RequestID:      observability.RequestIDFromContext(ctx),
		OccurredAt:     s.now(),
	}
	if app.Job != nil {
		event.JobTitle = app.Job.Title
	}
	if err := s.publisher.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("application event not published", zap.String("subject", subject), zap.String("application_id", app.ID.String()), zap.Error(err))
	}
}

func containsID(ids []common.UUID, id common.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
