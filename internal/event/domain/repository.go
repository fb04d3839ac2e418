package domain

import (
	"context"

	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Event]
	FindByGUID(ctx context.Context, db *gorm.DB, guid string) (*Event, error)
}
