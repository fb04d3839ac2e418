package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[DataSensitivity]
	ForPair(ctx context.Context, db *gorm.DB, assetID, eventID snowflake.ID) ([]DataSensitivity, error)
	DistinctCodes(ctx context.Context, db *gorm.DB) ([]*int, error)
	DistinctNotes(ctx context.Context, db *gorm.DB) ([]*string, error)
	// SetAll overwrites code and note on every row.
	SetAll(ctx context.Context, db *gorm.DB, code *int, note *string) (int64, error)
}
