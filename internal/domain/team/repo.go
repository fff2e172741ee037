package team

import (
	"context"

	"github.com/google/uuid"
)

type MemberRepository interface {
	Create(ctx context.Context, m *TeamMember) error
	GetByID(ctx context.Context, id uuid.UUID) (*TeamMember, error)
	Update(ctx context.Context, m *TeamMember) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*TeamMember, int, error)
}
