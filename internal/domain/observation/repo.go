package observation

import (
	"context"

	"github.com/google/uuid"
)

type ObservationRepository interface {
	Create(ctx context.Context, o *Observation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Observation, error)
	Update(ctx context.Context, o *Observation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Observation, int, error)
	// ListAll returns every observation, newest first, for reports.
	ListAll(ctx context.Context) ([]*Observation, error)
}
