package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Contact returns the utility name and email, falling back to configured defaults.
	Contact(ctx context.Context) (Contact, error)
	Put(ctx context.Context, name, value string) error
}

type Contact struct {
	Utility string `json:"utility"`
	Email   string `json:"email"`
}

var ErrInvalidName = errors.New("invalid_setting_name")
