package domain

import (
	"context"

	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Setting]
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Setting, error)
}
