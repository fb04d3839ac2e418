package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/config"
	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/setting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cfg   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	defaults domain.Contact
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("setting.service"),
		repo:  p.Repo,
		genID: p.GenID,
		defaults: domain.Contact{
			Utility: p.Cfg.ContactUtility,
			Email:   p.Cfg.ContactEmail,
		},
	}
}

func (s *Service) Contact(ctx context.Context) (domain.Contact, error) {
	out := s.defaults
	for name, dst := range map[string]*string{
		domain.ContactUtility: &out.Utility,
		domain.ContactEmail:   &out.Email,
	} {
		row, err := s.repo.FindByName(ctx, s.db, name)
		if err != nil {
			return out, pqerr.Persistence("load setting "+name, err)
		}
		if row != nil {
			*dst = row.Value
		}
	}
	return out, nil
}

func (s *Service) Put(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidName
	}
	row, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return pqerr.Persistence("load setting "+name, err)
	}
	now := time.Now().UTC()
	if row == nil {
		row = &domain.Setting{ID: s.genID.Generate(), Name: name, Value: value, UpdatedAt: now}
		err = s.repo.Insert(ctx, s.db, row)
	} else {
		row.Value = value
		row.UpdatedAt = now
		err = s.repo.Update(ctx, s.db, row)
	}
	if err != nil {
		return pqerr.Persistence("save setting "+name, err)
	}
	return nil
}
