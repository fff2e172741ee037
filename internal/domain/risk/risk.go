package risk

import "fmt"

// Level is the categorical risk bucket stored on an observation.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Temperatures strictly above this add to the score.
const FeverThreshold = 37.5

const (
	feverPoints     = 2
	symptomPoints   = 2
	contactPoints   = 2
	chronicPoints   = 1
	highThreshold   = 5
	mediumThreshold = 3
)

// MaxScore is the highest score Assess can return.
const MaxScore = feverPoints + symptomPoints + contactPoints + chronicPoints

const (
	RecommendationHigh   = "Full isolation recommended."
	RecommendationMedium = "Remote work and partial isolation recommended."
	RecommendationLow    = "Condition stable, no isolation required."
)

// Input holds the raw observation fields that drive the score.
// A nil Temperature contributes nothing.
type Input struct {
	Temperature     *float64
	SymptomsPresent bool
	CloseContact    bool
	ChronicDisease  bool
}

// Assessment is the derived triple persisted alongside an observation.
type Assessment struct {
	Score          int    `json:"risk_score"`
	Level          Level  `json:"risk_level"`
	Recommendation string `json:"recommendation"`
}

// Assess scores an observation. It is total: every input yields a result.
func Assess(in Input) Assessment {
	score := 0
	if in.Temperature != nil && *in.Temperature > FeverThreshold {
		score += feverPoints
	}
	if in.SymptomsPresent {
		score += symptomPoints
	}
	if in.CloseContact {
		score += contactPoints
	}
	if in.ChronicDisease {
		score += chronicPoints
	}

	level := LevelForScore(score)
	return Assessment{
		Score:          score,
		Level:          level,
		Recommendation: level.Recommendation(),
	}
}

// LevelForScore maps a score onto its level. Monotonic in score.
func LevelForScore(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Recommendation returns the per-observation advice for the level.
func (l Level) Recommendation() string {
	switch l {
	case LevelHigh:
		return RecommendationHigh
	case LevelMedium:
		return RecommendationMedium
	default:
		return RecommendationLow
	}
}

// Display is the human-readable label used in reports.
func (l Level) Display() string {
	switch l {
	case LevelHigh:
		return "High risk"
	case LevelMedium:
		return "Medium risk"
	case LevelLow:
		return "Low risk"
	default:
		return "-"
	}
}

func (l Level) Valid() bool {
	return l == LevelLow || l == LevelMedium || l == LevelHigh
}

// ParseLevel validates a level string from storage or a query parameter.
func ParseLevel(s string) (Level, error) {
	l := Level(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid risk level: %q", s)
	}
	return l, nil
}
