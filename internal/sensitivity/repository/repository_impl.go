package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/sensitivity/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[domain.DataSensitivity]
}

func Provide() domain.Repository {
	return &repo{Store: repository.NewStore[domain.DataSensitivity]()}
}

func (r *repo) ForPair(ctx context.Context, db *gorm.DB, assetID, eventID snowflake.ID) ([]domain.DataSensitivity, error) {
	return r.FindWhere(ctx, db,
		repository.Eq("asset_id", assetID),
		repository.Eq("event_id", eventID),
	)
}

func (r *repo) DistinctCodes(ctx context.Context, db *gorm.DB) ([]*int, error) {
	var codes []*int
	err := db.WithContext(ctx).
		Model(&domain.DataSensitivity{}).
		Distinct("code").
		Pluck("code", &codes).Error
	return codes, err
}

func (r *repo) DistinctNotes(ctx context.Context, db *gorm.DB) ([]*string, error) {
	var notes []*string
	err := db.WithContext(ctx).
		Model(&domain.DataSensitivity{}).
		Distinct("note").
		Pluck("note", &notes).Error
	return notes, err
}

func (r *repo) SetAll(ctx context.Context, db *gorm.DB, code *int, note *string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.DataSensitivity{}).
		Where("1 = 1").
		Updates(map[string]any{
			"code": code,
			"note": note,
		})
	return res.RowsAffected, res.Error
}
