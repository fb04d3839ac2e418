package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	seriesdomain "github.com/smallbiznis/pqio/internal/dataseries/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[seriesdomain.DataSeries]
}

func Provide() seriesdomain.Repository {
	return &repo{Store: repository.NewStore[seriesdomain.DataSeries]()}
}

func (r *repo) ForEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]seriesdomain.DataSeries, error) {
	return r.FindWhere(ctx, db, repository.Eq("event_id", eventID))
}

func (r *repo) CountByChannel(ctx context.Context, db *gorm.DB, channelID snowflake.ID) (int64, error) {
	return r.CountWhere(ctx, db, repository.Eq("channel_id", channelID))
}

func (r *repo) CountByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error) {
	return r.CountWhere(ctx, db, repository.Eq("event_id", eventID))
}
