package repository

import (
	"context"

	"github.com/smallbiznis/pqio/internal/importrun/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[domain.ImportRun]
}

func Provide() domain.Repository {
	return &repo{Store: repository.NewStore[domain.ImportRun]()}
}

func (r *repo) FindByBatchID(ctx context.Context, db *gorm.DB, batchID string) (*domain.ImportRun, error) {
	return r.FindOne(ctx, db, repository.Eq("batch_id", batchID))
}

func (r *repo) Recent(ctx context.Context, db *gorm.DB, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []domain.ImportRun
	err := db.WithContext(ctx).
		Order("started_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
