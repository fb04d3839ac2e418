package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pqio/internal/customfield/domain"
	"github.com/smallbiznis/pqio/internal/pqerr"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customfield.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

// AddDomain registers a new domain by inserting an unattached placeholder field.
func (s *Service) AddDomain(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ".") {
		return domain.ErrInvalidDomain
	}

	existing, err := s.repo.Domains(ctx, s.db)
	if err != nil {
		return pqerr.Persistence("list custom field domains", err)
	}
	if slices.ContainsFunc(existing, func(d string) bool { return strings.EqualFold(d, name) }) {
		return domain.ErrDomainExists
	}

	row := &domain.CustomField{
		ID:        s.genID.Generate(),
		Domain:    name,
		Key:       domain.PlaceholderKey,
		Value:     domain.PlaceholderValue,
		Type:      domain.PlaceholderType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, row); err != nil {
		return pqerr.Persistence("insert custom field domain", err)
	}
	s.log.Info("custom field domain added", zap.String("domain", name))
	return nil
}

func (s *Service) Domains(ctx context.Context) ([]string, error) {
	names, err := s.repo.Domains(ctx, s.db)
	if err != nil {
		return nil, pqerr.Persistence("list custom field domains", err)
	}
	return names, nil
}
