package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func temp(v float64) *float64 { return &v }

func TestAssess_AllClear(t *testing.T) {
	for _, tv := range []*float64{nil, temp(36.6), temp(37.5), temp(-10), temp(0)} {
		got := Assess(Input{Temperature: tv})
		assert.Equal(t, 0, got.Score)
		assert.Equal(t, LevelLow, got.Level)
		assert.Equal(t, RecommendationLow, got.Recommendation)
	}
}

func TestAssess_FeverAndSymptomsIsMedium(t *testing.T) {
	got := Assess(Input{Temperature: temp(38.0), SymptomsPresent: true})
	assert.Equal(t, 4, got.Score)
	assert.Equal(t, LevelMedium, got.Level)
	assert.Equal(t, RecommendationMedium, got.Recommendation)
}

func TestAssess_EverythingIsHigh(t *testing.T) {
	got := Assess(Input{
		Temperature:     temp(38.0),
		SymptomsPresent: true,
		CloseContact:    true,
		ChronicDisease:  true,
	})
	assert.Equal(t, 7, got.Score)
	assert.Equal(t, MaxScore, got.Score)
	assert.Equal(t, LevelHigh, got.Level)
	assert.Equal(t, RecommendationHigh, got.Recommendation)
}

func TestAssess_FeverBoundaryIsExclusive(t *testing.T) {
	assert.Equal(t, 0, Assess(Input{Temperature: temp(37.5)}).Score)
	assert.Equal(t, 2, Assess(Input{Temperature: temp(37.51)}).Score)
}

func TestAssess_AllCombinations(t *testing.T) {
	temps := []*float64{nil, temp(36.0), temp(39.2)}
	bools := []bool{false, true}
	for _, tv := range temps {
		for _, s := range bools {
			for _, c := range bools {
				for _, ch := range bools {
					in := Input{Temperature: tv, SymptomsPresent: s, CloseContact: c, ChronicDisease: ch}
					got := Assess(in)
					require.GreaterOrEqual(t, got.Score, 0)
					require.LessOrEqual(t, got.Score, MaxScore)
					assert.Equal(t, LevelForScore(got.Score), got.Level)
					assert.Equal(t, got, Assess(in), "assessment must be idempotent")
				}
			}
		}
	}
}

func TestLevelForScore_Monotonic(t *testing.T) {
	rank := map[Level]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2}
	prev := LevelForScore(0)
	for s := 1; s <= MaxScore; s++ {
		cur := LevelForScore(s)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "score %d", s)
		prev = cur
	}

	tests := []struct {
		score int
		want  Level
	}{
		{0, LevelLow}, {2, LevelLow}, {3, LevelMedium}, {4, LevelMedium}, {5, LevelHigh}, {7, LevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("medium")
	require.NoError(t, err)
	assert.Equal(t, LevelMedium, l)

	_, err = ParseLevel("orta")
	assert.Error(t, err)
	_, err = ParseLevel("")
	assert.Error(t, err)
}

func TestLevel_Display(t *testing.T) {
	assert.Equal(t, "Low risk", LevelLow.Display())
	assert.Equal(t, "Medium risk", LevelMedium.Display())
	assert.Equal(t, "High risk", LevelHigh.Display())
	assert.Equal(t, "-", Level("").Display())
}
