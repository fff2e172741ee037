package stats

import (
	"context"
	"errors"
	"testing"
	"time"
)

// snapshotRepo answers the aggregate queries from an in-memory slice using
// the same functions the SQL mirrors.
type snapshotRepo struct {
	obs []Snapshot
	err error

	weeklySince time.Time
	trendSince  time.Time
}

func (r *snapshotRepo) RiskCounts(_ context.Context) (Counts, error) {
	if r.err != nil {
		return Counts{}, r.err
	}
	return AggregateRiskCounts(r.obs), nil
}

func (r *snapshotRepo) LevelCountsSince(_ context.Context, since time.Time) (Counts, error) {
	if r.err != nil {
		return Counts{}, r.err
	}
	r.weeklySince = since
	return WeeklyBucketCounts(r.obs, since.Add(WeeklyWindow)), nil
}

func (r *snapshotRepo) MonthlyAveragesSince(_ context.Context, since time.Time) ([]MonthlyPoint, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.trendSince = since
	return MonthlyAverageTrend(r.obs, since.Add(TrendWindow)), nil
}

func newTestService(repo Repository) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return now }
	return s
}

func TestService_Summary(t *testing.T) {
	repo := &snapshotRepo{obs: []Snapshot{
		snap(0, now.Add(-time.Hour)),
		snap(4, now.Add(-48*time.Hour)),
		snap(7, now.Add(-30*24*time.Hour)),
	}}
	svc := newTestService(repo)

	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Stats != (Counts{Low: 1, Medium: 1, High: 1}) {
		t.Errorf("unexpected stats: %+v", sum.Stats)
	}
	if sum.WeeklyStats != (Counts{Low: 1, Medium: 1}) {
		t.Errorf("unexpected weekly stats: %+v", sum.WeeklyStats)
	}
	if sum.Recommendation != RecommendationHigh {
		t.Errorf("unexpected recommendation: %s", sum.Recommendation)
	}
	if !repo.weeklySince.Equal(now.Add(-WeeklyWindow)) {
		t.Errorf("expected weekly cutoff now-7d, got %s", repo.weeklySince)
	}
}

func TestService_MonthlyTrend(t *testing.T) {
	repo := &snapshotRepo{obs: []Snapshot{snap(2, now), snap(4, now)}}
	svc := newTestService(repo)

	points, err := svc.MonthlyTrend(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 || points[0].AverageScore != 3 {
		t.Errorf("unexpected points: %+v", points)
	}
	if !repo.trendSince.Equal(now.Add(-TrendWindow)) {
		t.Errorf("expected trend cutoff now-180d, got %s", repo.trendSince)
	}
}

func TestService_PropagatesRepositoryErrors(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newTestService(&snapshotRepo{err: boom})

	if _, err := svc.Summary(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
	if _, err := svc.MonthlyTrend(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
	if _, err := svc.RiskCounts(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}
