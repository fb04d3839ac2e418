package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/pkg/repository"
	"gorm.io/gorm"
)

type Repository interface {
	repository.Repository[CustomField]
	ForPair(ctx context.Context, db *gorm.DB, assetID, eventID snowflake.ID) ([]CustomField, error)
	Domains(ctx context.Context, db *gorm.DB) ([]string, error)
}
