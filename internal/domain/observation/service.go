package observation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
	"github.com/healthwatch/healthwatch/internal/platform/db"
	"github.com/healthwatch/healthwatch/internal/platform/events"
)

// EventHighRisk is published for every observation saved at level high.
const EventHighRisk = "observation.high_risk"

// Alert is the payload of an EventHighRisk event.
type Alert struct {
	ObservationID  uuid.UUID `json:"observation_id"`
	MemberID       uuid.UUID `json:"member_id"`
	MemberName     string    `json:"member_name"`
	RiskScore      int       `json:"risk_score"`
	Recommendation string    `json:"recommendation"`
	Action         string    `json:"action"`
}

type Service struct {
	repo      ObservationRepository
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo ObservationRepository) *Service {
	return &Service{repo: repo, logger: zerolog.Nop(), now: time.Now}
}

// SetAlertPublisher enables high-risk alerts. Publishing happens after the
// write committed; failures are logged and never undo the write.
func (s *Service) SetAlertPublisher(p events.Publisher, logger zerolog.Logger) {
	s.publisher = p
	s.logger = logger
}

func (s *Service) CreateObservation(ctx context.Context, in ObservationInput) (*Observation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	o := &Observation{}
	in.apply(o)
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, s.writeError("create observation", err)
	}
	s.alert(ctx, o, "created")
	return o, nil
}

// CreateObservationAt records an observation that was taken at observedAt,
// for imports and demo data. observedAt becomes the permanent creation
// time. Past observations do not raise alerts.
func (s *Service) CreateObservationAt(ctx context.Context, in ObservationInput, observedAt time.Time) (*Observation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if observedAt.IsZero() {
		return nil, fieldError("observed_at is required")
	}
	if observedAt.After(s.now()) {
		return nil, fieldError("observed_at must not be in the future")
	}
	o := &Observation{CreatedAt: observedAt}
	in.apply(o)
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, s.writeError("create observation", err)
	}
	return o, nil
}

func (s *Service) GetObservation(ctx context.Context, id uuid.UUID) (*Observation, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get observation %s: %w", id, err)
	}
	return o, nil
}

// UpdateObservation replaces the raw fields and recomputes the derived
// ones in the same write.
func (s *Service) UpdateObservation(ctx context.Context, id uuid.UUID, in ObservationInput) (*Observation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	o := &Observation{ID: id}
	in.apply(o)
	if err := s.repo.Update(ctx, o); err != nil {
		return nil, s.writeError(fmt.Sprintf("update observation %s", id), err)
	}
	s.alert(ctx, o, "updated")
	return o, nil
}

func (s *Service) DeleteObservation(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete observation %s: %w", id, err)
	}
	return nil
}

func (s *Service) ListObservations(ctx context.Context, filter ListFilter, limit, offset int) ([]*Observation, int, error) {
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list observations: %w", err)
	}
	return items, total, nil
}

// AllObservations returns every observation, newest first.
func (s *Service) AllObservations(ctx context.Context) ([]*Observation, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all observations: %w", err)
	}
	return items, nil
}

func (s *Service) writeError(op string, err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrUnknownMember)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) alert(ctx context.Context, o *Observation, action string) {
	if s.publisher == nil || o.RiskLevel != risk.LevelHigh {
		return
	}
	_, err := s.publisher.Publish(ctx, events.Event{
		Type:       EventHighRisk,
		Key:        o.ID.String(),
		OccurredAt: o.UpdatedAt,
		Payload: Alert{
			ObservationID:  o.ID,
			MemberID:       o.MemberID,
			MemberName:     o.MemberName,
			RiskScore:      o.RiskScore,
			Recommendation: o.Recommendation,
			Action:         action,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("observation_id", o.ID.String()).
			Str("member_id", o.MemberID.String()).
			Msg("failed to publish high risk alert")
	}
}
