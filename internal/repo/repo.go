package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/query"
)

// GormRepo holds the entity-specific queries.
type GormRepo struct {
	DB *gorm.DB
}

// Scope narrows a query, e.g. to the rows owned by one user.
type Scope func(*gorm.DB) *gorm.DB

func Where(column string, value any) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
}

// Repo provides CRUD for one entity type. Associations are never written
// through it; entity-specific code manages them explicitly.
type Repo[T any] struct {
	DB *gorm.DB
}

func NewRepo[T any](db *gorm.DB) *Repo[T] {
	return &Repo[T]{DB: db}
}

func (r *Repo[T]) Create(ctx context.Context, rec *T) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Create(rec).Error
}

func (r *Repo[T]) Get(ctx context.Context, id uuid.UUID, scope Scope, preload ...string) (*T, error) {
	db := r.DB.WithContext(ctx)
	if scope != nil {
		db = db.Scopes(scope)
	}
	for _, p := range preload {
		db = db.Preload(p)
	}

	var rec T
	if err := db.Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns one page of rows and the number of rows matching the filters.
func (r *Repo[T]) List(ctx context.Context, f *query.Features, scope Scope, preload ...string) ([]T, int64, error) {
	base := r.DB.WithContext(ctx).Model(new(T))
	if scope != nil {
		base = base.Scopes(scope)
	}

	var total int64
	if err := f.Filter(base.Session(&gorm.Session{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db := f.Apply(base.Session(&gorm.Session{}))
	for _, p := range preload {
		db = db.Preload(p)
	}

	items := make([]T, 0)
	if err := db.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *Repo[T]) Save(ctx context.Context, rec *T) error {
	return r.DB.WithContext(ctx).Omit(clause.Associations).Save(rec).Error
}

func (r *Repo[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
