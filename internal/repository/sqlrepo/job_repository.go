package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/job"
)

const jobColumns = `id, title, company, location, description, posted_by, created_at`

type JobRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewJobRepository(db *sql.DB, dialect Dialect) *JobRepository {
	return &JobRepository{db: db, dialect: dialect}
}

func (r *JobRepository) Create(ctx context.Context, j job.Job) (*job.Job, error) {
	j.ID = common.NewUUID()
	j.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`),
		j.ID, j.Title, j.Company, j.Location, j.Description, j.PostedBy, j.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create job", err)
	}
	return &j, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = $1`), id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeJobNotFound, "job not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load job", err)
	}
	return j, nil
}

func (r *JobRepository) GetByIDs(ctx context.Context, ids []common.UUID) ([]job.Job, error) {
	if len(ids) == 0 {
		return []job.Job{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id IN (`+placeholders(1, len(ids))+`)`), args...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to load jobs", err)
	}
	return collectJobs(rows)
}

func (r *JobRepository) List(ctx context.Context, filter job.Filter, page job.Page) ([]job.Job, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		args = append(args, containsPattern(filter.Query))
		n := len(args)
		var matches []string
		for _, column := range []string{"title", "description", "company", "location"} {
			matches = append(matches, fmt.Sprintf(`LOWER(%s) LIKE $%d ESCAPE '\'`, column, n))
		}
		conds = append(conds, "("+strings.Join(matches, " OR ")+")")
	}
	exact := []struct{ column, value string }{
		{"location", filter.Location},
		{"company", filter.Company},
		{"posted_by", filter.PostedBy},
	}
	for _, f := range exact {
		if f.value == "" {
			continue
		}
		args = append(args, f.value)
		conds = append(conds, fmt.Sprintf("%s = $%d", f.column, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.dialect.rebind(`SELECT COUNT(*) FROM jobs`+where), args...).Scan(&total); err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to count jobs", err)
	}
	if page.Skip >= total {
		return []job.Job{}, total, nil
	}

	listArgs := append(append([]any{}, args...), page.Limit, page.Skip)
	query := fmt.Sprintf(`SELECT %s FROM jobs%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, jobColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(query), listArgs...)
	if err != nil {
		return nil, 0, common.NewError(common.CodeInternal, "failed to list jobs", err)
	}
	items, err := collectJobs(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *JobRepository) ListIDsByOwner(ctx context.Context, postedBy string) ([]common.UUID, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`SELECT id FROM jobs WHERE posted_by = $1`), postedBy)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list owned jobs", err)
	}
	defer rows.Close()
	ids := []common.UUID{}
	for rows.Next() {
		var id common.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan job id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list owned jobs", err)
	}
	return ids, nil
}

func (r *JobRepository) UpdateOwner(ctx context.Context, id common.UUID, postedBy string) (*job.Job, error) {
	result, err := r.db.ExecContext(ctx, r.dialect.rebind(`UPDATE jobs SET posted_by = $1 WHERE id = $2`), postedBy, id)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update job owner", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeJobNotFound, "job not found", sql.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*job.Job, error) {
	var j job.Job
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.Description, &j.PostedBy, &j.CreatedAt); err != nil {
		return nil, err
	}
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]job.Job, error) {
	defer rows.Close()
	items := []job.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan job", err)
		}
		items = append(items, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to read jobs", err)
	}
	return items, nil
}
