package clinic

import (
	"context"
)

type SettingsRepository interface {
	// LockForCreate serializes concurrent creators. Must run inside a transaction.
	LockForCreate(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, s *Settings) error
	// Get returns the single record or db.ErrNotFound.
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
	Delete(ctx context.Context) error
}
