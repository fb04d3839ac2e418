package service

import (
	"context"

	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/sensitivity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("sensitivity.service"),
		repo: p.Repo,
	}
}

// CodeIsGlobal reports whether every row carries the same code.
func (s *Service) CodeIsGlobal(ctx context.Context) (bool, error) {
	codes, err := s.repo.DistinctCodes(ctx, s.db)
	if err != nil {
		return false, pqerr.Persistence("distinct sensitivity codes", err)
	}
	return len(codes) == 1, nil
}

// NoteIsGlobal reports whether every row carries the same note.
func (s *Service) NoteIsGlobal(ctx context.Context) (bool, error) {
	notes, err := s.repo.DistinctNotes(ctx, s.db)
	if err != nil {
		return false, pqerr.Persistence("distinct sensitivity notes", err)
	}
	return len(notes) == 1, nil
}

func (s *Service) Global(ctx context.Context) (*domain.Global, error) {
	var out domain.Global
	codes, err := s.repo.DistinctCodes(ctx, s.db)
	if err != nil {
		return nil, pqerr.Persistence("distinct sensitivity codes", err)
	}
	if len(codes) == 1 {
		out.Code = codes[0]
	}
	notes, err := s.repo.DistinctNotes(ctx, s.db)
	if err != nil {
		return nil, pqerr.Persistence("distinct sensitivity notes", err)
	}
	if len(notes) == 1 {
		out.Note = notes[0]
	}
	return &out, nil
}

// SetGlobal applies one code and note to every stored row.
func (s *Service) SetGlobal(ctx context.Context, req domain.Global) (int64, error) {
	if req.Code != nil && *req.Code < 0 {
		return 0, domain.ErrInvalidCode
	}
	n, err := s.repo.SetAll(ctx, s.db, req.Code, req.Note)
	if err != nil {
		return 0, pqerr.Persistence("set global sensitivity", err)
	}
	s.log.Info("global sensitivity applied", zap.Int64("rows", n))
	return n, nil
}
