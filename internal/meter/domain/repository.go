package domain

import (
	"context"

	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Meter]
	FindByDeviceName(ctx context.Context, db *gorm.DB, name string) ([]Meter, error)
}
