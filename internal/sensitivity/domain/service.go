package domain

import (
	"context"
	"errors"
)

type Service interface {
	CodeIsGlobal(ctx context.Context) (bool, error)
	NoteIsGlobal(ctx context.Context) (bool, error)
	Global(ctx context.Context) (*Global, error)
	SetGlobal(ctx context.Context, req Global) (int64, error)
}

// Global is the store-wide sensitivity. A nil field is not uniform.
type Global struct {
	Code *int    `json:"code"`
	Note *string `json:"note"`
}

var ErrInvalidCode = errors.New("invalid_sensitivity_code")
