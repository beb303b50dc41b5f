package database

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		posted_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_location_idx ON jobs (location)`,
	`CREATE INDEX IF NOT EXISTS jobs_company_idx ON jobs (company)`,
	`CREATE INDEX IF NOT EXISTS jobs_posted_by_idx ON jobs (posted_by)`,
	`CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id UUID PRIMARY KEY,
		job_id UUID NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		applicant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		resume_url TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_job_applicant_uidx ON applications (job_id, applicant_id)`,
	`CREATE INDEX IF NOT EXISTS applications_job_idx ON applications (job_id)`,
	`CREATE INDEX IF NOT EXISTS applications_applicant_idx ON applications (applicant_id)`,
	`CREATE INDEX IF NOT EXISTS applications_resume_url_idx ON applications (resume_url)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		company TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		posted_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS jobs_location_idx ON jobs (location)`,
	`CREATE INDEX IF NOT EXISTS jobs_company_idx ON jobs (company)`,
	`CREATE INDEX IF NOT EXISTS jobs_posted_by_idx ON jobs (posted_by)`,
	`CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		applicant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		resume_url TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'accepted', 'rejected')),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_job_applicant_uidx ON applications (job_id, applicant_id)`,
	`CREATE INDEX IF NOT EXISTS applications_job_idx ON applications (job_id)`,
	`CREATE INDEX IF NOT EXISTS applications_applicant_idx ON applications (applicant_id)`,
	`CREATE INDEX IF NOT EXISTS applications_resume_url_idx ON applications (resume_url)`,
}

func schemaFor(driver string) ([]string, error) {
	switch driver {
	case "postgres", "pgx":
		return postgresSchema, nil
	case "sqlite3":
		return sqliteSchema, nil
	default:
		return nil, fmt.Errorf("no schema for driver %q", driver)
	}
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) (int, error) {
	statements, err := schemaFor(driver)
	if err != nil {
		return 0, err
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return i, fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return len(statements), nil
}
