package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListOptions carries pagination for list queries. Ordering is fixed to
// created_at descending so pages stay stable while rows are inserted.
type ListOptions struct {
	Offset  int
	Limit   int
	OrderBy string
	Order   string
}

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// NewListOptions clamps page and per_page to sane bounds.
func NewListOptions(page, perPage int) *ListOptions {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return &ListOptions{
		Offset:  (page - 1) * perPage,
		Limit:   perPage,
		OrderBy: "created_at",
		Order:   "desc",
	}
}

// BaseRepository holds the shared read path for the uuid-keyed tables.
// Writes beyond Create are status transitions owned by the concrete
// repositories, which guard them with conditional updates.
type BaseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

// DB exposes the underlying handle for queries the generic layer
// cannot express.
func (r *BaseRepository[T]) DB() *gorm.DB {
	return r.db
}

func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	return r.db.WithContext(ctx).Create(entity).Error
}

func (r *BaseRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

// FindAll returns one page of rows plus the unpaginated total.
func (r *BaseRepository[T]) FindAll(ctx context.Context, opts *ListOptions) ([]T, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.WithContext(ctx).Model(new(T))
	if opts != nil {
		if opts.OrderBy != "" {
			query = query.Order(opts.OrderBy + " " + opts.Order)
		}
		query = query.Offset(opts.Offset).Limit(opts.Limit)
	}

	var entities []T
	if err := query.Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}
