// Package stats aggregates stored observations for the dashboard. The
// functions over []Snapshot define each aggregate; the PostgreSQL
// repository computes the same values in SQL, and the integration suite
// checks the two against each other on the same rows.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/healthwatch/healthwatch/internal/domain/risk"
)

// Score bands used for the overall counts. These differ from the level
// thresholds in package risk: a score of 3 counts as low here but is a
// medium-level observation.
const (
	bandLowMax    = 3
	bandMediumMax = 6
)

const (
	WeeklyWindow = 7 * 24 * time.Hour
	TrendWindow  = 180 * 24 * time.Hour
)

const (
	RecommendationHigh   = "High risk detected. Full isolation recommended."
	RecommendationMedium = "Medium risk present. Remote work recommended."
	RecommendationStable = "Condition stable."
)

// Snapshot is the stored slice of an observation the aggregates look at.
type Snapshot struct {
	Score     int
	Level     risk.Level
	CreatedAt time.Time
}

type Counts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

func (c Counts) Total() int { return c.Low + c.Medium + c.High }

type MonthlyPoint struct {
	Month        time.Time `json:"month"`
	Label        string    `json:"label"`
	AverageScore float64   `json:"average_score"`
}

// AggregateRiskCounts buckets every snapshot by stored score.
func AggregateRiskCounts(obs []Snapshot) Counts {
	var c Counts
	for _, o := range obs {
		switch {
		case o.Score <= bandLowMax:
			c.Low++
		case o.Score <= bandMediumMax:
			c.Medium++
		default:
			c.High++
		}
	}
	return c
}

// WeeklyBucketCounts counts snapshots created at or after now-7d by their
// stored level. Levels outside low/medium/high are ignored.
func WeeklyBucketCounts(obs []Snapshot, now time.Time) Counts {
	cutoff := now.Add(-WeeklyWindow)
	byLevel := lo.CountValuesBy(
		lo.Filter(obs, func(o Snapshot, _ int) bool { return !o.CreatedAt.Before(cutoff) }),
		func(o Snapshot) risk.Level { return o.Level },
	)
	return Counts{
		Low:    byLevel[risk.LevelLow],
		Medium: byLevel[risk.LevelMedium],
		High:   byLevel[risk.LevelHigh],
	}
}

// MonthlyAverageTrend averages stored scores per UTC calendar month over
// the trailing 180 days, oldest month first. Empty months are omitted.
func MonthlyAverageTrend(obs []Snapshot, now time.Time) []MonthlyPoint {
	cutoff := now.Add(-TrendWindow)
	groups := lo.GroupBy(
		lo.Filter(obs, func(o Snapshot, _ int) bool { return !o.CreatedAt.Before(cutoff) }),
		func(o Snapshot) time.Time { return MonthStart(o.CreatedAt) },
	)

	months := lo.Keys(groups)
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	points := make([]MonthlyPoint, 0, len(months))
	for _, m := range months {
		scores := lo.Map(groups[m], func(o Snapshot, _ int) int { return o.Score })
		points = append(points, NewMonthlyPoint(m, float64(lo.Sum(scores))/float64(len(scores))))
	}
	return points
}

// NewMonthlyPoint labels month and rounds avg to two decimals.
func NewMonthlyPoint(month time.Time, avg float64) MonthlyPoint {
	month = MonthStart(month)
	return MonthlyPoint{
		Month:        month,
		Label:        month.Month().String(),
		AverageScore: Round2(avg),
	}
}

func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recommend derives the dashboard advice from the overall counts.
func Recommend(c Counts) string {
	switch {
	case c.High > 0:
		return RecommendationHigh
	case c.Medium > 0:
		return RecommendationMedium
	default:
		return RecommendationStable
	}
}

// Trend is the chart-ready shape of a monthly series.
type Trend struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func TrendFromPoints(points []MonthlyPoint) Trend {
	t := Trend{Labels: make([]string, 0, len(points)), Values: make([]float64, 0, len(points))}
	for _, p := range points {
		t.Labels = append(t.Labels, p.Label)
		t.Values = append(t.Values, p.AverageScore)
	}
	return t
}
