package stats

import (
	"context"
	"time"
)

// Repository runs the aggregates where the observations live.
type Repository interface {
	RiskCounts(ctx context.Context) (Counts, error)
	LevelCountsSince(ctx context.Context, since time.Time) (Counts, error)
	MonthlyAveragesSince(ctx context.Context, since time.Time) ([]MonthlyPoint, error)
}
