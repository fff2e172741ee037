package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
	"github.com/healthwatch/healthwatch/internal/platform/db"
)

type statsRepoPG struct{ pool *pgxpool.Pool }

func NewStatsRepoPG(pool *pgxpool.Pool) Repository {
	return &statsRepoPG{pool: pool}
}

func (r *statsRepoPG) RiskCounts(ctx context.Context) (Counts, error) {
	var c Counts
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE risk_score <= $1),
			COUNT(*) FILTER (WHERE risk_score > $1 AND risk_score <= $2),
			COUNT(*) FILTER (WHERE risk_score > $2)
		FROM health_observation`, bandLowMax, bandMediumMax).Scan(&c.Low, &c.Medium, &c.High)
	if err != nil {
		return Counts{}, fmt.Errorf("count by score band: %w", err)
	}
	return c, nil
}

func (r *statsRepoPG) LevelCountsSince(ctx context.Context, since time.Time) (Counts, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT risk_level, COUNT(*)
		FROM health_observation
		WHERE created_at >= $1
		GROUP BY risk_level`, since)
	if err != nil {
		return Counts{}, fmt.Errorf("count by level: %w", err)
	}
	defer rows.Close()

	var c Counts
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return Counts{}, fmt.Errorf("scan level count: %w", err)
		}
		switch risk.Level(level) {
		case risk.LevelLow:
			c.Low = n
		case risk.LevelMedium:
			c.Medium = n
		case risk.LevelHigh:
			c.High = n
		}
	}
	if err := rows.Err(); err != nil {
		return Counts{}, fmt.Errorf("count by level: %w", err)
	}
	return c, nil
}

func (r *statsRepoPG) MonthlyAveragesSince(ctx context.Context, since time.Time) ([]MonthlyPoint, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT date_trunc('month', created_at AT TIME ZONE 'UTC') AS month, AVG(risk_score)::float8
		FROM health_observation
		WHERE created_at >= $1
		GROUP BY month
		ORDER BY month`, since)
	if err != nil {
		return nil, fmt.Errorf("monthly averages: %w", err)
	}
	defer rows.Close()

	var points []MonthlyPoint
	for rows.Next() {
		var month time.Time
		var avg float64
		if err := rows.Scan(&month, &avg); err != nil {
			return nil, fmt.Errorf("scan monthly average: %w", err)
		}
		// timestamp without time zone scans as UTC wall time
		points = append(points, NewMonthlyPoint(month, avg))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly averages: %w", err)
	}
	return points, nil
}
