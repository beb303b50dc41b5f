package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/application"
)

const applicationColumns = `id, job_id, applicant_id, name, email, message, resume_url, status, created_at, updated_at`

type ApplicationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewApplicationRepository(db *sql.DB, dialect Dialect) *ApplicationRepository {
	return &ApplicationRepository{db: db, dialect: dialect}
}

// Create relies on the unique (job_id, applicant_id) index, so concurrent
// submissions for the same pair yield exactly one row.
func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	app.ID = common.NewUUID()
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = application.StatusPending
	}
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`),
		app.ID, app.JobID, app.ApplicantID, app.Name, app.Email, app.Message, app.ResumeURL, app.Status, app.CreatedAt, app.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewError(common.CodeDuplicateApplication, "already applied to this job", err)
		}
		if isForeignKeyViolation(err) {
			return nil, common.NewError(common.CodeJobNotFound, "job not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create application", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+applicationColumns+` FROM applications WHERE id = $1`), id)
	return r.scanOne(row)
}

func (r *ApplicationRepository) FindByJobAndApplicant(ctx context.Context, jobID common.UUID, applicantID string) (*application.Application, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+applicationColumns+` FROM applications WHERE job_id = $1 AND applicant_id = $2`), jobID, applicantID)
	return r.scanOne(row)
}

func (r *ApplicationRepository) Find(ctx context.Context, filter application.Filter) ([]application.Application, error) {
	if filter.JobIDs != nil && len(filter.JobIDs) == 0 {
		return []application.Application{}, nil
	}
	var (
		conds []string
		args  []any
	)
	if filter.JobID != "" {
		args = append(args, filter.JobID)
		conds = append(conds, fmt.Sprintf("job_id = $%d", len(args)))
	}
	if len(filter.JobIDs) > 0 {
		conds = append(conds, "job_id IN ("+placeholders(len(args)+1, len(filter.JobIDs))+")")
		for _, id := range filter.JobIDs {
			args = append(args, id)
		}
	}
	if filter.ApplicantID != "" {
		args = append(args, filter.ApplicantID)
		conds = append(conds, fmt.Sprintf("applicant_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list applications", err)
	}
	defer rows.Close()
	items := []application.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan application", err)
		}
		items = append(items, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to read applications", err)
	}
	return items, nil
}

// UpdateStatus touches only status and updated_at.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id common.UUID, status application.Status) (*application.Application, error) {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(`UPDATE applications SET status = $1, updated_at = $2 WHERE id = $3`), status, time.Now().UTC(), id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update application status", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeApplicationNotFound, "application not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepository) ResumeReferenced(ctx context.Context, url string) (bool, error) {
	var referenced bool
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT EXISTS (SELECT 1 FROM applications WHERE resume_url = $1)`), url).Scan(&referenced)
	if err != nil {
		return false, common.NewError(common.CodeInternal, "failed to check resume reference", err)
	}
	return referenced, nil
}

func (r *ApplicationRepository) scanOne(row *sql.Row) (*application.Application, error) {
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeApplicationNotFound, "application not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load application", err)
	}
	return app, nil
}

func scanApplication(row scanner) (*application.Application, error) {
	var app application.Application
	if err := row.Scan(&app.ID, &app.JobID, &app.ApplicantID, &app.Name, &app.Email, &app.Message, &app.ResumeURL, &app.Status, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return nil, err
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return &app, nil
}
