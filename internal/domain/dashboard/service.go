// Package dashboard composes statistics, clinic settings and observations
// into the dashboard, trend and report views.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/healthwatch/healthwatch/internal/domain/clinic"
	"github.com/healthwatch/healthwatch/internal/domain/observation"
	"github.com/healthwatch/healthwatch/internal/domain/stats"
	"github.com/healthwatch/healthwatch/internal/platform/reporting"
)

type StatsSource interface {
	Summary(ctx context.Context) (*stats.Summary, error)
	MonthlyTrend(ctx context.Context) ([]stats.MonthlyPoint, error)
}

type ClinicSource interface {
	// FindSettings returns nil, nil when no clinic is configured.
	FindSettings(ctx context.Context) (*clinic.Settings, error)
}

type ObservationSource interface {
	AllObservations(ctx context.Context) ([]*observation.Observation, error)
}

type Service struct {
	stats        StatsSource
	clinic       ClinicSource
	observations ObservationSource
	now          func() time.Time
}

func NewService(st StatsSource, cl ClinicSource, obs ObservationSource) *Service {
	return &Service{stats: st, clinic: cl, observations: obs, now: time.Now}
}

// Overview is the dashboard payload.
type Overview struct {
	Stats          stats.Counts     `json:"stats"`
	WeeklyStats    stats.Counts     `json:"weekly_stats"`
	Recommendation string           `json:"recommendation"`
	Clinic         *clinic.Settings `json:"clinic"`
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	sum, err := s.stats.Summary(ctx)
	if err != nil {
		return nil, err
	}
	cl, err := s.clinic.FindSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("clinic settings: %w", err)
	}
	return &Overview{
		Stats:          sum.Stats,
		WeeklyStats:    sum.WeeklyStats,
		Recommendation: sum.Recommendation,
		Clinic:         cl,
	}, nil
}

func (s *Service) Trend(ctx context.Context) (stats.Trend, error) {
	points, err := s.MonthlyPoints(ctx)
	if err != nil {
		return stats.Trend{}, err
	}
	return stats.TrendFromPoints(points), nil
}

func (s *Service) MonthlyPoints(ctx context.Context) ([]stats.MonthlyPoint, error) {
	return s.stats.MonthlyTrend(ctx)
}

// Report assembles the export model: every observation, newest first.
func (s *Service) Report(ctx context.Context, generatedBy string) (reporting.Report, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return reporting.Report{}, err
	}
	obs, err := s.observations.AllObservations(ctx)
	if err != nil {
		return reporting.Report{}, err
	}

	r := reporting.Report{
		Date:        s.now(),
		Stats:       reporting.Stats{Low: ov.Stats.Low, Medium: ov.Stats.Medium, High: ov.Stats.High},
		Rows:        make([]reporting.Row, 0, len(obs)),
		GeneratedBy: generatedBy,
	}
	if ov.Clinic != nil {
		r.ClinicName = ov.Clinic.Name
	}
	for _, o := range obs {
		r.Rows = append(r.Rows, reporting.Row{
			MemberName:       o.MemberName,
			Temperature:      o.Temperature,
			RiskLevelDisplay: o.RiskLevel.Display(),
			RiskScore:        o.RiskScore,
			ObservedAt:       o.CreatedAt,
		})
	}
	return r, nil
}
