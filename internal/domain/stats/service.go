package stats

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Summary is the statistics block of the dashboard.
type Summary struct {
	Stats          Counts `json:"stats"`
	WeeklyStats    Counts `json:"weekly_stats"`
	Recommendation string `json:"recommendation"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	now := s.now()
	counts, err := s.repo.RiskCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("risk counts: %w", err)
	}
	weekly, err := s.repo.LevelCountsSince(ctx, now.Add(-WeeklyWindow))
	if err != nil {
		return nil, fmt.Errorf("weekly counts: %w", err)
	}
	return &Summary{
		Stats:          counts,
		WeeklyStats:    weekly,
		Recommendation: Recommend(counts),
	}, nil
}

func (s *Service) MonthlyTrend(ctx context.Context) ([]MonthlyPoint, error) {
	points, err := s.repo.MonthlyAveragesSince(ctx, s.now().Add(-TrendWindow))
	if err != nil {
		return nil, fmt.Errorf("monthly trend: %w", err)
	}
	return points, nil
}

// RiskCounts returns only the overall banded counts.
func (s *Service) RiskCounts(ctx context.Context) (Counts, error) {
	c, err := s.repo.RiskCounts(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("risk counts: %w", err)
	}
	return c, nil
}
