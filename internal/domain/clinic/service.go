package clinic

import (
	"context"
	"fmt"

	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type Service struct {
	repo SettingsRepository
	tx   db.TxRunner
}

func NewService(repo SettingsRepository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

// CreateSettings stores the clinic record. Only one may ever exist: the
// check and insert run under a table lock, and the singleton index rejects
// anything that slips past.
func (s *Service) CreateSettings(ctx context.Context, in SettingsInput) (*Settings, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	settings := &Settings{Name: in.Name, Address: in.Address, Phone: in.Phone}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.LockForCreate(ctx); err != nil {
			return fmt.Errorf("lock clinic settings: %w", err)
		}
		exists, err := s.repo.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check clinic settings: %w", err)
		}
		if exists {
			return ErrAlreadyExists
		}
		return s.repo.Create(ctx, settings)
	})
	if db.IsUniqueViolation(err) {
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create clinic settings: %w", err)
	}
	return settings, nil
}

// GetSettings returns the record or an error matching db.IsNotFound.
func (s *Service) GetSettings(ctx context.Context) (*Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get clinic settings: %w", err)
	}
	return settings, nil
}

// FindSettings is GetSettings with a missing record reported as nil.
func (s *Service) FindSettings(ctx context.Context) (*Settings, error) {
	settings, err := s.repo.Get(ctx)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get clinic settings: %w", err)
	}
	return settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, in SettingsInput) (*Settings, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	settings := &Settings{Name: in.Name, Address: in.Address, Phone: in.Phone}
	if err := s.repo.Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("update clinic settings: %w", err)
	}
	return settings, nil
}

func (s *Service) DeleteSettings(ctx context.Context) error {
	if err := s.repo.Delete(ctx); err != nil {
		return fmt.Errorf("delete clinic settings: %w", err)
	}
	return nil
}
