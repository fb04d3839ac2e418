package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[DataSeries]
	ForEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) ([]DataSeries, error)
	CountByChannel(ctx context.Context, db *gorm.DB, channelID snowflake.ID) (int64, error)
	CountByEvent(ctx context.Context, db *gorm.DB, eventID snowflake.ID) (int64, error)
}
