package job

import (
	"context"

	"github.com/Dest1on/jobboard/internal/common"
)

type Repository interface {
	Create(ctx context.Context, job Job) (*Job, error)
	GetByID(ctx context.Context, id common.UUID) (*Job, error)
	GetByIDs(ctx context.Context, ids []common.UUID) ([]Job, error)
	List(ctx context.Context, filter Filter, page Page) ([]Job, int, error)
	ListIDsByOwner(ctx context.Context, postedBy string) ([]common.UUID, error)
	UpdateOwner(ctx context.Context, id common.UUID, postedBy string) (*Job, error)
}

// ConsistentReader is implemented by repositories that may serve GetByID
// from a cache. GetByIDConsistent always reads the backing store.
type ConsistentReader interface {
	GetByIDConsistent(ctx context.Context, id common.UUID) (*Job, error)
}

// GetConsistent reads a job for ownership checks, bypassing any cache in
// front of the store.
func GetConsistent(ctx context.Context, repo Repository, id common.UUID) (*Job, error) {
	if reader, ok := repo.(ConsistentReader); ok {
		return reader.GetByIDConsistent(ctx, id)
	}
	return repo.GetByID(ctx, id)
}
