package repository

import (
	"context"
	"strings"

	assetdomain "github.com/smallbiznis/pqio/internal/asset/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[assetdomain.Asset]
}

func Provide() assetdomain.Repository {
	return &repo{Store: repository.NewStore[assetdomain.Asset]()}
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key string) (*assetdomain.Asset, error) {
	return r.FindOne(ctx, db, repository.Eq("asset_key", key))
}

func (r *repo) KeysLike(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var keys []string
	err := db.WithContext(ctx).
		Model(&assetdomain.Asset{}).
		Where("asset_key LIKE ? ESCAPE '!'", escapeLike(prefix)+"%").
		Pluck("asset_key", &keys).Error
	return keys, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
