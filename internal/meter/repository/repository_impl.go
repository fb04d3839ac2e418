package repository

import (
	"context"

	meterdomain "github.com/smallbiznis/pqio/internal/meter/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[meterdomain.Meter]
}

func Provide() meterdomain.Repository {
	return &repo{Store: repository.NewStore[meterdomain.Meter]()}
}

func (r *repo) FindByDeviceName(ctx context.Context, db *gorm.DB, name string) ([]meterdomain.Meter, error) {
	return r.FindWhere(ctx, db, repository.Eq("device_name", name))
}
