package repository

import (
	"context"

	"github.com/smallbiznis/pqio/internal/setting/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[domain.Setting]
}

func Provide() domain.Repository {
	return &repo{Store: repository.NewStore[domain.Setting]()}
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Setting, error) {
	return r.FindOne(ctx, db, repository.Eq("name", name))
}
