package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/healthwatch/healthwatch/internal/domain/observation"
	"github.com/healthwatch/healthwatch/internal/domain/risk"
	"github.com/healthwatch/healthwatch/internal/domain/team"
)

type fakeMembers struct {
	created []team.MemberInput
	err     error
}

func (f *fakeMembers) CreateMember(_ context.Context, in team.MemberInput) (*team.TeamMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &team.TeamMember{ID: uuid.New(), FullName: in.FullName, Age: in.Age, Position: in.Position}, nil
}

type fakeObservations struct {
	created    []observation.ObservationInput
	observedAt []time.Time
}

func (f *fakeObservations) CreateObservationAt(_ context.Context, in observation.ObservationInput, at time.Time) (*observation.Observation, error) {
	f.created = append(f.created, in)
	f.observedAt = append(f.observedAt, at)
	a := risk.Assess(risk.Input{
		Temperature:     in.Temperature,
		SymptomsPresent: in.SymptomsPresent,
		CloseContact:    in.CloseContact,
		ChronicDisease:  in.ChronicDisease,
	})
	return &observation.Observation{ID: uuid.New(), MemberID: in.MemberID, RiskScore: a.Score, RiskLevel: a.Level, CreatedAt: at}, nil
}

func TestDataGenerator_Reproducible(t *testing.T) {
	a, b := NewDataGenerator(7), NewDataGenerator(7)
	for i := 0; i < 20; i++ {
		ma, mb := a.GenerateMember(), b.GenerateMember()
		if ma != mb {
			t.Fatalf("iteration %d: %+v != %+v", i, ma, mb)
		}
	}
}

func TestDataGenerator_MemberIsValid(t *testing.T) {
	gen := NewDataGenerator(1)
	for i := 0; i < 50; i++ {
		m := gen.GenerateMember()
		if m.FullName == "" || m.Position == "" {
			t.Fatalf("incomplete member: %+v", m)
		}
		if m.Age < 20 || m.Age > 64 {
			t.Errorf("age out of range: %d", m.Age)
		}
	}
}

func TestDataGenerator_ObservationTemperatures(t *testing.T) {
	gen := NewDataGenerator(3)
	id := uuid.New()
	missing := 0
	for i := 0; i < 500; i++ {
		o := gen.GenerateObservation(id)
		if o.MemberID != id {
			t.Fatal("member id not propagated")
		}
		if o.Temperature == nil {
			missing++
			continue
		}
		if *o.Temperature < 36 || *o.Temperature > 40 {
			t.Errorf("implausible temperature %.1f", *o.Temperature)
		}
	}
	if missing == 0 || missing > 100 {
		t.Errorf("expected some but few missing temperatures, got %d", missing)
	}
}

func TestDataGenerator_ObservedAtWithinWindow(t *testing.T) {
	gen := NewDataGenerator(5)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		at := gen.ObservedAt(now, 30)
		if at.After(now) || at.Before(now.AddDate(0, 0, -30)) {
			t.Fatalf("timestamp %v outside window", at)
		}
	}
}

func TestSeeder_Seed(t *testing.T) {
	members, obs := &fakeMembers{}, &fakeObservations{}

	cfg := SeedConfig{MemberCount: 3, ObservationsPerMember: 4, Days: 90, Seed: 11}
	before := time.Now()
	res, err := NewSeeder(cfg, members, obs).Seed(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Members != 3 || res.Observations != 12 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(obs.observedAt) != 12 {
		t.Fatalf("expected an observation time for every observation, got %d", len(obs.observedAt))
	}
	for _, at := range obs.observedAt {
		if at.After(time.Now()) || at.Before(before.Add(-90*24*time.Hour)) {
			t.Errorf("observation time %v outside the 90 day window", at)
		}
	}
	total := 0
	for _, n := range res.ByLevel {
		total += n
	}
	if total != 12 {
		t.Errorf("level counts should sum to 12, got %d", total)
	}
}

func TestSeeder_StopsOnError(t *testing.T) {
	members := &fakeMembers{err: errors.New("db down")}
	res, err := NewSeeder(DefaultSeedConfig(), members, &fakeObservations{}).Seed(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if res.Members != 0 {
		t.Errorf("expected no members, got %d", res.Members)
	}
}

func TestSeeder_InvalidConfig(t *testing.T) {
	_, err := NewSeeder(SeedConfig{}, &fakeMembers{}, &fakeObservations{}).Seed(context.Background())
	if err == nil {
		t.Error("expected config error")
	}
}
