package account

import (
	"context"

	"github.com/google/uuid"
)

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error)
	List(ctx context.Context, limit, offset int) ([]*Account, int, error)
}
