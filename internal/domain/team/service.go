package team

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	repo MemberRepository
}

func NewService(repo MemberRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateMember(ctx context.Context, in MemberInput) (*TeamMember, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := &TeamMember{FullName: in.FullName, Age: in.Age, Position: in.Position}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create team member: %w", err)
	}
	return m, nil
}

func (s *Service) GetMember(ctx context.Context, id uuid.UUID) (*TeamMember, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get team member %s: %w", id, err)
	}
	return m, nil
}

func (s *Service) UpdateMember(ctx context.Context, id uuid.UUID, in MemberInput) (*TeamMember, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := &TeamMember{ID: id, FullName: in.FullName, Age: in.Age, Position: in.Position}
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("update team member %s: %w", id, err)
	}
	return m, nil
}

// DeleteMember removes the member and, through the foreign key, every
// observation recorded for them.
func (s *Service) DeleteMember(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete team member %s: %w", id, err)
	}
	return nil
}

func (s *Service) ListMembers(ctx context.Context, filter ListFilter, limit, offset int) ([]*TeamMember, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list team members: %w", err)
	}
	return items, total, nil
}
