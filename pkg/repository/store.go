package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is the table-access surface every entity exposes. Each method
// takes the handle to run on so callers choose between a transaction and
// the root connection.
type Repository[T any] interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*T, error)
	FindWhere(ctx context.Context, db *gorm.DB, q ...Query) ([]T, error)
	FindOne(ctx context.Context, db *gorm.DB, q ...Query) (*T, error)
	Insert(ctx context.Context, db *gorm.DB, resource *T) error
	Update(ctx context.Context, db *gorm.DB, resource *T) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	CountWhere(ctx context.Context, db *gorm.DB, q ...Query) (int64, error)
}

// Store implements Repository over a gorm model with an "id" primary key.
type Store[T any] struct{}

func NewStore[T any]() Store[T] {
	return Store[T]{}
}

func (Store[T]) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*T, error) {
	if id == 0 {
		return nil, nil
	}
	var out T
	err := db.WithContext(ctx).Where("id = ?", id).First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// FindWhere returns matches ordered by id so "first match" is stable.
func (Store[T]) FindWhere(ctx context.Context, db *gorm.DB, q ...Query) ([]T, error) {
	var out []T
	err := build(ctx, db, new(T), q).Order("id ASC").Find(&out).Error
	return out, err
}

func (Store[T]) FindOne(ctx context.Context, db *gorm.DB, q ...Query) (*T, error) {
	var out []T
	err := build(ctx, db, new(T), q).Order("id ASC").Limit(1).Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (Store[T]) Insert(ctx context.Context, db *gorm.DB, resource *T) error {
	return db.WithContext(ctx).Create(resource).Error
}

// Update writes every column, including nil pointers.
func (Store[T]) Update(ctx context.Context, db *gorm.DB, resource *T) error {
	return db.WithContext(ctx).Save(resource).Error
}

func (Store[T]) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(new(T)).Error
}

func (Store[T]) CountWhere(ctx context.Context, db *gorm.DB, q ...Query) (int64, error) {
	var n int64
	err := build(ctx, db, new(T), q).Count(&n).Error
	return n, err
}

func build(ctx context.Context, db *gorm.DB, model any, q []Query) *gorm.DB {
	stmt := db.WithContext(ctx).Model(model)
	for _, opt := range q {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
