package cached

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/cache"
	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/job"
)

const keyPrefix = "jobboard:job:"

// JobRepository serves GetByID from the cache and writes through to the
// wrapped repository. Cache failures never fail a request.
type JobRepository struct {
	job.Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewJobRepository(inner job.Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *JobRepository {
	return &JobRepository{Repository: inner, cache: c, ttl: ttl, logger: logger}
}

func (r *JobRepository) GetByID(ctx context.Context, id common.UUID) (*job.Job, error) {
	key := keyPrefix + id.String()
	raw, err := r.cache.Get(ctx, key)
	if err == nil {
		var cached job.Job
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		r.logger.Warn("discarding malformed cached job", zap.String("job_id", id.String()))
	} else if !errors.Is(err, cache.ErrNotFound) {
		r.logger.Warn("job cache read failed", zap.String("job_id", id.String()), zap.Error(err))
	}

	found, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, found)
	return found, nil
}

// GetByIDConsistent reads the store and refreshes the cached copy. Owner
// checks go through here so a stale entry can never authorize anyone.
func (r *JobRepository) GetByIDConsistent(ctx context.Context, id common.UUID) (*job.Job, error) {
	found, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, found)
	return found, nil
}

// UpdateOwner writes the new owner through to the cache. If that write
// fails the entry is dropped instead.
func (r *JobRepository) UpdateOwner(ctx context.Context, id common.UUID, postedBy string) (*job.Job, error) {
	updated, err := r.Repository.UpdateOwner(ctx, id, postedBy)
	if err != nil {
		return nil, err
	}
	if r.store(ctx, updated) {
		return updated, nil
	}
	if err := r.cache.Delete(ctx, keyPrefix+id.String()); err != nil {
		r.logger.Error("stale job left in cache until ttl", zap.String("job_id", id.String()), zap.Duration("ttl", r.ttl), zap.Error(err))
	}
	return updated, nil
}

func (r *JobRepository) store(ctx context.Context, j *job.Job) bool {
	raw, err := json.Marshal(j)
	if err != nil {
		return false
	}
	if err := r.cache.Set(ctx, keyPrefix+j.ID.String(), raw, r.ttl); err != nil {
		r.logger.Warn("job cache write failed", zap.String("job_id", j.ID.String()), zap.Error(err))
		return false
	}
	return true
}
