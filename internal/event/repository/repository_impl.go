package repository

import (
	"context"
	"strings"

	eventdomain "github.com/smallbiznis/pqio/internal/event/domain"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Store[eventdomain.Event]
}

func Provide() eventdomain.Repository {
	return &repo{Store: repository.NewStore[eventdomain.Event]()}
}

func (r *repo) FindByGUID(ctx context.Context, db *gorm.DB, guid string) (*eventdomain.Event, error) {
	return r.FindOne(ctx, db, repository.Eq("guid", strings.ToLower(guid)))
}
