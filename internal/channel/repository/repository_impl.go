package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	channeldomain "github.com/smallbiznis/pqio/internal/channel/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[channeldomain.Channel]
}

func Provide() channeldomain.Repository {
	return &repo{Store: repository.NewStore[channeldomain.Channel]()}
}

func (r *repo) FindIdentity(ctx context.Context, db *gorm.DB, m channeldomain.MeasurementType, assetID *snowflake.ID, s channeldomain.SignalType, meterID snowflake.ID) (*channeldomain.Channel, error) {
	return r.FindOne(ctx, db,
		repository.Eq("measurement_type", m),
		repository.EqOpt("asset_id", assetID),
		repository.Eq("signal_type", s),
		repository.Eq("meter_id", meterID),
	)
}

func (r *repo) ListForAsset(ctx context.Context, db *gorm.DB, assetID snowflake.ID, ids []snowflake.ID) ([]channeldomain.Channel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.FindWhere(ctx, db,
		repository.Eq("asset_id", assetID),
		repository.In("id", ids),
	)
}
