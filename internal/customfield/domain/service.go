package domain

import (
	"context"
	"errors"
)

type Service interface {
	AddDomain(ctx context.Context, name string) error
	Domains(ctx context.Context) ([]string, error)
}

var (
	ErrInvalidDomain = errors.New("invalid_domain")
	ErrDomainExists  = errors.New("domain_exists")
)
