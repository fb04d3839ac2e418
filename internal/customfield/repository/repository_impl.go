package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/customfield/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[domain.CustomField]
}

func Provide() domain.Repository {
	return &repo{Store: repository.NewStore[domain.CustomField]()}
}

func (r *repo) ForPair(ctx context.Context, db *gorm.DB, assetID, eventID snowflake.ID) ([]domain.CustomField, error) {
	return r.FindWhere(ctx, db,
		repository.Eq("asset_id", assetID),
		repository.Eq("event_id", eventID),
	)
}

func (r *repo) Domains(ctx context.Context, db *gorm.DB) ([]string, error) {
	var names []string
	err := db.WithContext(ctx).
		Model(&domain.CustomField{}).
		Distinct("domain").
		Order("domain ASC").
		Pluck("domain", &names).Error
	return names, err
}
