package domain

import (
	"context"

	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Asset]
	FindByKey(ctx context.Context, db *gorm.DB, key string) (*Asset, error)
	// KeysLike lists asset keys starting with prefix.
	KeysLike(ctx context.Context, db *gorm.DB, prefix string) ([]string, error)
}
