package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/domain/application"
	"github.com/Dest1on/jobboard/internal/storage"
)

const DefaultSweepGrace = 24 * time.Hour

type SweepReport struct {
	Scanned  int
	Orphaned []string
	Deleted  int
	Failed   int
	DryRun   bool
}

// ResumeSweeper removes uploaded resumes that no application references,
// which happens when a submission fails after its upload succeeded and the
// inline cleanup could not run.
type ResumeSweeper struct {
	sink   storage.Sink
	repo   application.Repository
	logger *zap.Logger
	now    func() time.Time
}

func NewResumeSweeper(sink storage.Sink, repo application.Repository, logger *zap.Logger) *ResumeSweeper {
	return &ResumeSweeper{sink: sink, repo: repo, logger: logger, now: time.Now}
}

// Sweep only considers objects older than grace so uploads of in-flight
// submissions are left alone.
func (s *ResumeSweeper) Sweep(ctx context.Context, grace time.Duration, dryRun bool) (SweepReport, error) {
	ctx, span := tracer.Start(ctx, "ResumeSweeper.Sweep")
	defer span.End()

	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	report := SweepReport{DryRun: dryRun, Orphaned: []string{}}
	objects, err := s.sink.List(ctx)
	if err != nil {
		span.RecordError(err)
		return report, err
	}
	cutoff := s.now().Add(-grace)
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if obj.CreatedAt.After(cutoff) {
			continue
		}
		report.Scanned++
		referenced, err := s.repo.ResumeReferenced(ctx, obj.URL)
		if err != nil {
			return report, err
		}
		if referenced {
			continue
		}
		report.Orphaned = append(report.Orphaned, obj.URL)
		if dryRun {
			continue
		}
		if err := s.sink.Delete(ctx, obj.URL); err != nil {
			report.Failed++
			s.logger.Warn("failed to delete orphaned resume", zap.String("resume_url", obj.URL), zap.Error(err))
			continue
		}
		report.Deleted++
	}
	s.logger.Info("resume sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("orphaned", len(report.Orphaned)),
		zap.Int("deleted", report.Deleted),
		zap.Int("failed", report.Failed),
		zap.Bool("dry_run", dryRun))
	return report, nil
}
