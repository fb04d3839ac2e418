package domain

import (
	"context"

	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[ImportRun]
	FindByBatchID(ctx context.Context, db *gorm.DB, batchID string) (*ImportRun, error)
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]ImportRun, error)
}
