package cached

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Dest1on/jobboard/internal/cache"
	"github.com/Dest1on/jobboard/internal/common"
	"github.com/Dest1on/jobboard/internal/domain/job"
)

type memoryCache struct {
	mu         sync.Mutex
	items      map[string][]byte
	failGet    bool
	failSet    bool
	failDelete bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSet {
		return errors.New("redis: connection refused")
	}
	c.items[key] = value
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("redis: connection refused")
	}
	v, ok := c.items[key]
	if !ok {
		return nil, cache.ErrNotFound
	}
	return v, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDelete {
		return errors.New("redis: connection refused")
	}
	delete(c.items, key)
	return nil
}

func (c *memoryCache) Close() error { return nil }

type countingJobs struct {
	job.Repository
	jobs  map[common.UUID]job.Job
	reads int
}

func (r *countingJobs) GetByID(_ context.Context, id common.UUID) (*job.Job, error) {
	r.reads++
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.NewError(common.CodeJobNotFound, "job not found", nil)
	}
	return &j, nil
}

func (r *countingJobs) UpdateOwner(_ context.Context, id common.UUID, postedBy string) (*job.Job, error) {
	j := r.jobs[id]
	j.PostedBy = postedBy
	r.jobs[id] = j
	return &j, nil
}

func TestGetByIDReadsThroughOnce(t *testing.T) {
	id := common.NewUUID()
	inner := &countingJobs{jobs: map[common.UUID]job.Job{id: {ID: id, Title: "Engineer", PostedBy: "owner-1"}}}
	repo := NewJobRepository(inner, newMemoryCache(), time.Minute, zap.NewNop())

	first, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.reads)
}

func TestUpdateOwnerInvalidatesCachedJob(t *testing.T) {
	id := common.NewUUID()
	inner := &countingJobs{jobs: map[common.UUID]job.Job{id: {ID: id, PostedBy: "owner-1"}}}
	repo := NewJobRepository(inner, newMemoryCache(), time.Minute, zap.NewNop())

	_, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	_, err = repo.UpdateOwner(context.Background(), id, "owner-2")
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "owner-2", got.PostedBy)
	assert.Equal(t, 1, inner.reads)
}

func TestUpdateOwnerWhenDeleteFails(t *testing.T) {
	id := common.NewUUID()
	inner := &countingJobs{jobs: map[common.UUID]job.Job{id: {ID: id, PostedBy: "old-owner"}}}
	c := newMemoryCache()
	c.failDelete = true
	repo := NewJobRepository(inner, c, time.Minute, zap.NewNop())

	_, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	_, err = repo.UpdateOwner(context.Background(), id, "new-owner")
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "new-owner", got.PostedBy)
}

func TestConsistentReadBypassesStaleEntry(t *testing.T) {
	id := common.NewUUID()
	inner := &countingJobs{jobs: map[common.UUID]job.Job{id: {ID: id, PostedBy: "old-owner"}}}
	c := newMemoryCache()
	repo := NewJobRepository(inner, c, time.Minute, zap.NewNop())

	_, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	// neither the write-through nor the invalidation reaches redis
	c.failSet = true
	c.failDelete = true
	_, err = repo.UpdateOwner(context.Background(), id, "new-owner")
	require.NoError(t, err)

	stale, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "old-owner", stale.PostedBy)

	fresh, err := job.GetConsistent(context.Background(), repo, id)
	require.NoError(t, err)
	assert.Equal(t, "new-owner", fresh.PostedBy)
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	id := common.NewUUID()
	inner := &countingJobs{jobs: map[common.UUID]job.Job{id: {ID: id}}}
	c := newMemoryCache()
	c.failGet = true
	repo := NewJobRepository(inner, c, time.Minute, zap.NewNop())

	_, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	_, err = repo.GetByID(context.Background(), common.NewUUID())
	assert.True(t, common.Is(err, common.CodeJobNotFound))
}
