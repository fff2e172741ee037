package observation

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
	"github.com/healthwatch/healthwatch/internal/platform/db"
	"github.com/healthwatch/healthwatch/internal/platform/events"
)

// -- Mock Repository --

type mockObsRepo struct {
	members map[uuid.UUID]string
	obs     map[uuid.UUID]*Observation
	clock   time.Time
}

func newMockObsRepo() *mockObsRepo {
	return &mockObsRepo{
		members: make(map[uuid.UUID]string),
		obs:     make(map[uuid.UUID]*Observation),
		clock:   time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
}

func (m *mockObsRepo) addMember(name string) uuid.UUID {
	id := uuid.New()
	m.members[id] = name
	return id
}

func (m *mockObsRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *mockObsRepo) Create(_ context.Context, o *Observation) error {
	name, ok := m.members[o.MemberID]
	if !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	o.ID = uuid.New()
	o.MemberName = name
	if o.CreatedAt.IsZero() {
		o.CreatedAt = m.tick()
	}
	o.UpdatedAt = o.CreatedAt
	cp := *o
	m.obs[o.ID] = &cp
	return nil
}

func (m *mockObsRepo) GetByID(_ context.Context, id uuid.UUID) (*Observation, error) {
	o, ok := m.obs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockObsRepo) Update(_ context.Context, o *Observation) error {
	old, ok := m.obs[o.ID]
	if !ok {
		return db.ErrNotFound
	}
	name, ok := m.members[o.MemberID]
	if !ok {
		return &pgconn.PgError{Code: "23503"}
	}
	o.MemberName = name
	o.CreatedAt = old.CreatedAt
	o.UpdatedAt = m.tick()
	cp := *o
	m.obs[o.ID] = &cp
	return nil
}

func (m *mockObsRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.obs[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.obs, id)
	return nil
}

func (m *mockObsRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Observation, int, error) {
	var out []*Observation
	for _, o := range m.obs {
		if f.MemberID != nil && o.MemberID != *f.MemberID {
			continue
		}
		if f.Level != "" && o.RiskLevel != f.Level {
			continue
		}
		if f.MemberName != "" && !strings.Contains(strings.ToLower(o.MemberName), strings.ToLower(f.MemberName)) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockObsRepo) ListAll(ctx context.Context) ([]*Observation, error) {
	items, _, err := m.List(ctx, ListFilter{}, len(m.obs)+1, 0)
	return items, err
}

type fakePublisher struct {
	events []events.Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev events.Event) (string, error) {
	p.events = append(p.events, ev)
	if p.err != nil {
		return "", p.err
	}
	return "1-0", nil
}

func temp(v float64) *float64 { return &v }

func newTestService() (*Service, *mockObsRepo) {
	repo := newMockObsRepo()
	return NewService(repo), repo
}

func TestService_CreateObservation_ComputesRisk(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("Sardor Aliyev")

	o, err := svc.CreateObservation(context.Background(), ObservationInput{
		MemberID:        member,
		Temperature:     temp(38.2),
		SymptomsPresent: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.RiskScore != 4 || o.RiskLevel != risk.LevelMedium {
		t.Errorf("expected score 4 medium, got %d %s", o.RiskScore, o.RiskLevel)
	}
	if o.Recommendation != risk.RecommendationMedium {
		t.Errorf("unexpected recommendation: %s", o.Recommendation)
	}
	if o.MemberName != "Sardor Aliyev" {
		t.Errorf("expected member name, got %q", o.MemberName)
	}
}

func TestService_CreateObservation_NoTemperature(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("A")

	o, err := svc.CreateObservation(context.Background(), ObservationInput{MemberID: member, ChronicDisease: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.RiskScore != 1 || o.RiskLevel != risk.LevelLow {
		t.Errorf("expected score 1 low, got %d %s", o.RiskScore, o.RiskLevel)
	}
}

func TestService_CreateObservation_MissingMember(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateObservation(context.Background(), ObservationInput{})
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestService_CreateObservation_UnknownMember(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateObservation(context.Background(), ObservationInput{MemberID: uuid.New()})
	if !errors.Is(err, ErrUnknownMember) {
		t.Errorf("expected ErrUnknownMember, got %v", err)
	}
}

func TestService_UpdateObservation_RecomputesRisk(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("B")
	o, _ := svc.CreateObservation(context.Background(), ObservationInput{MemberID: member})
	if o.RiskLevel != risk.LevelLow {
		t.Fatalf("expected low to start with, got %s", o.RiskLevel)
	}

	updated, err := svc.UpdateObservation(context.Background(), o.ID, ObservationInput{
		MemberID:        member,
		Temperature:     temp(39),
		SymptomsPresent: true,
		CloseContact:    true,
		ChronicDisease:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.RiskScore != 7 || updated.RiskLevel != risk.LevelHigh {
		t.Errorf("expected 7 high, got %d %s", updated.RiskScore, updated.RiskLevel)
	}
	if !updated.CreatedAt.Equal(o.CreatedAt) {
		t.Error("expected created_at to be unchanged by update")
	}

	stored, _ := repo.GetByID(context.Background(), o.ID)
	if stored.RiskScore != 7 || stored.Recommendation != risk.RecommendationHigh {
		t.Errorf("stored derived fields not overwritten: %+v", stored)
	}
}

func TestService_CreateObservationAt_KeepsObservedTime(t *testing.T) {
	svc, repo := newTestService()
	pub := &fakePublisher{}
	svc.SetAlertPublisher(pub, zerolog.Nop())
	member := repo.addMember("E")
	observed := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)

	o, err := svc.CreateObservationAt(context.Background(), ObservationInput{
		MemberID: member, Temperature: temp(39), SymptomsPresent: true, CloseContact: true,
	}, observed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.CreatedAt.Equal(observed) {
		t.Errorf("expected created_at %v, got %v", observed, o.CreatedAt)
	}
	if o.RiskLevel != risk.LevelHigh {
		t.Errorf("expected derived fields to be computed, got %s", o.RiskLevel)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no alert for a past observation, got %d", len(pub.events))
	}

	updated, err := svc.UpdateObservation(context.Background(), o.ID, ObservationInput{MemberID: member})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CreatedAt.Equal(observed) {
		t.Errorf("expected update to keep created_at %v, got %v", observed, updated.CreatedAt)
	}
}

func TestService_CreateObservationAt_RejectsBadTimes(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("F")

	for _, at := range []time.Time{{}, time.Now().Add(time.Hour)} {
		if _, err := svc.CreateObservationAt(context.Background(), ObservationInput{MemberID: member}, at); !errors.Is(err, ErrInvalid) {
			t.Errorf("observed at %v: expected ErrInvalid, got %v", at, err)
		}
	}
	if len(repo.obs) != 0 {
		t.Errorf("expected nothing stored, got %d", len(repo.obs))
	}
}

func TestService_UpdateObservation_NotFound(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("C")
	_, err := svc.UpdateObservation(context.Background(), uuid.New(), ObservationInput{MemberID: member})
	if !db.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_HighRiskPublishesAlert(t *testing.T) {
	svc, repo := newTestService()
	pub := &fakePublisher{}
	svc.SetAlertPublisher(pub, zerolog.Nop())
	member := repo.addMember("D")

	svc.CreateObservation(context.Background(), ObservationInput{MemberID: member, SymptomsPresent: true})
	if len(pub.events) != 0 {
		t.Fatalf("expected no alert for low risk, got %d", len(pub.events))
	}

	o, _ := svc.CreateObservation(context.Background(), ObservationInput{
		MemberID: member, Temperature: temp(38.5), SymptomsPresent: true, CloseContact: true,
	})
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != EventHighRisk || ev.Key != o.ID.String() {
		t.Errorf("unexpected event: %+v", ev)
	}
	alert, ok := ev.Payload.(Alert)
	if !ok {
		t.Fatalf("expected Alert payload, got %T", ev.Payload)
	}
	if alert.RiskScore != 6 || alert.MemberName != "D" || alert.Action != "created" {
		t.Errorf("unexpected alert: %+v", alert)
	}
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	svc, repo := newTestService()
	var buf bytes.Buffer
	svc.SetAlertPublisher(&fakePublisher{err: errors.New("redis down")}, zerolog.New(&buf))
	member := repo.addMember("E")

	o, err := svc.CreateObservation(context.Background(), ObservationInput{
		MemberID: member, SymptomsPresent: true, CloseContact: true, ChronicDisease: true,
	})
	if err != nil {
		t.Fatalf("expected write to succeed, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), o.ID); err != nil {
		t.Errorf("expected observation to be stored: %v", err)
	}
	if !strings.Contains(buf.String(), "failed to publish high risk alert") {
		t.Errorf("expected failure to be logged, got %q", buf.String())
	}
}

func TestService_ListObservations_Filters(t *testing.T) {
	svc, repo := newTestService()
	a := repo.addMember("Anvar")
	b := repo.addMember("Barno")
	svc.CreateObservation(context.Background(), ObservationInput{MemberID: a})
	svc.CreateObservation(context.Background(), ObservationInput{MemberID: a, SymptomsPresent: true, CloseContact: true, ChronicDisease: true})
	svc.CreateObservation(context.Background(), ObservationInput{MemberID: b})

	items, total, err := svc.ListObservations(context.Background(), ListFilter{MemberID: &a}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("expected 2 for member a, got %d", total)
	}
	if !items[0].CreatedAt.After(items[1].CreatedAt) {
		t.Error("expected newest first")
	}

	_, total, _ = svc.ListObservations(context.Background(), ListFilter{Level: risk.LevelHigh}, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 high, got %d", total)
	}

	_, total, _ = svc.ListObservations(context.Background(), ListFilter{MemberName: "bar"}, 10, 0)
	if total != 1 {
		t.Errorf("expected 1 for name filter, got %d", total)
	}
}

func TestService_DeleteObservation(t *testing.T) {
	svc, repo := newTestService()
	member := repo.addMember("F")
	o, _ := svc.CreateObservation(context.Background(), ObservationInput{MemberID: member})

	if err := svc.DeleteObservation(context.Background(), o.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.DeleteObservation(context.Background(), o.ID); !db.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
