// Package sandbox generates reproducible demo data: team members and a few
// months of observations, for development databases and UI demos.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/healthwatch/healthwatch/internal/domain/observation"
	"github.com/healthwatch/healthwatch/internal/domain/team"
)

// SeedConfig controls the volume and spread of generated data.
type SeedConfig struct {
	MemberCount           int   `json:"member_count"`
	ObservationsPerMember int   `json:"observations_per_member"`
	Days                  int   `json:"days"`
	Seed                  int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		MemberCount:           12,
		ObservationsPerMember: 6,
		Days:                  150,
		Seed:                  42,
	}
}

func (c SeedConfig) validate() error {
	if c.MemberCount <= 0 || c.ObservationsPerMember < 0 || c.Days <= 0 {
		return fmt.Errorf("invalid seed config: %+v", c)
	}
	return nil
}

var (
	firstNames = []string{"Aziza", "Bekzod", "Dilnoza", "Farrukh", "Gulnora", "Jasur", "Kamola", "Laziz", "Madina", "Nodir", "Ozoda", "Rustam", "Sevara", "Timur", "Umida", "Zafar"}
	lastNames  = []string{"Aliev", "Karimova", "Rahimov", "Saidova", "Tursunov", "Usmonova", "Yusupov", "Ergasheva", "Nazarov", "Qodirova"}
	positions  = []string{"Nurse", "Physician", "Lab technician", "Receptionist", "Pharmacist", "Driver", "Cleaner", "Administrator"}
)

// DataGenerator produces inputs from a seeded source; the same seed yields
// the same sequence.
type DataGenerator struct {
	rng *rand.Rand
}

func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) GenerateMember() team.MemberInput {
	return team.MemberInput{
		FullName: g.pick(firstNames) + " " + g.pick(lastNames),
		Age:      20 + g.rng.Intn(45),
		Position: g.pick(positions),
	}
}

// GenerateObservation skews towards healthy readings; about one in ten has
// no temperature.
func (g *DataGenerator) GenerateObservation(memberID uuid.UUID) observation.ObservationInput {
	in := observation.ObservationInput{
		MemberID:        memberID,
		SymptomsPresent: g.rng.Float64() < 0.25,
		CloseContact:    g.rng.Float64() < 0.2,
		ChronicDisease:  g.rng.Float64() < 0.15,
	}
	if g.rng.Float64() >= 0.1 {
		t := 36.2 + g.rng.Float64()*1.2
		if in.SymptomsPresent && g.rng.Float64() < 0.6 {
			t += 1.0 + g.rng.Float64()*1.5
		}
		t = float64(int(t*10)) / 10
		in.Temperature = &t
	}
	return in
}

// ObservedAt spreads observations uniformly over the last days.
func (g *DataGenerator) ObservedAt(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(g.rng.Int63n(int64(days) * int64(24*time.Hour))))
}

type MemberCreator interface {
	CreateMember(ctx context.Context, in team.MemberInput) (*team.TeamMember, error)
}

// ObservationCreator stores observations with an explicit observation
// time so trends span months.
type ObservationCreator interface {
	CreateObservationAt(ctx context.Context, in observation.ObservationInput, observedAt time.Time) (*observation.Observation, error)
}

// SeedResult summarizes a Seed run.
type SeedResult struct {
	Members      int            `json:"members"`
	Observations int            `json:"observations"`
	ByLevel      map[string]int `json:"by_level"`
	Duration     time.Duration  `json:"duration"`
}

type Seeder struct {
	config       SeedConfig
	members      MemberCreator
	observations ObservationCreator
	now          func() time.Time
}

func NewSeeder(config SeedConfig, members MemberCreator, observations ObservationCreator) *Seeder {
	return &Seeder{config: config, members: members, observations: observations, now: time.Now}
}

func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	if err := s.config.validate(); err != nil {
		return nil, err
	}
	start := s.now()
	gen := NewDataGenerator(s.config.Seed)
	res := &SeedResult{ByLevel: map[string]int{}}

	for i := 0; i < s.config.MemberCount; i++ {
		m, err := s.members.CreateMember(ctx, gen.GenerateMember())
		if err != nil {
			return res, fmt.Errorf("seed member %d: %w", i, err)
		}
		res.Members++

		for j := 0; j < s.config.ObservationsPerMember; j++ {
			in := gen.GenerateObservation(m.ID)
			o, err := s.observations.CreateObservationAt(ctx, in, gen.ObservedAt(start, s.config.Days))
			if err != nil {
				return res, fmt.Errorf("seed observation for %s: %w", m.ID, err)
			}
			res.Observations++
			res.ByLevel[string(o.RiskLevel)]++
		}
	}
	res.Duration = s.now().Sub(start)
	return res, nil
}
