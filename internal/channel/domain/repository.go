package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[Channel]
	// FindIdentity matches the (measurement, asset, signal, meter) tuple.
	FindIdentity(ctx context.Context, db *gorm.DB, m MeasurementType, assetID *snowflake.ID, s SignalType, meterID snowflake.ID) (*Channel, error)
	// ListForAsset returns the asset's channels among ids.
	ListForAsset(ctx context.Context, db *gorm.DB, assetID snowflake.ID, ids []snowflake.ID) ([]Channel, error)
}
