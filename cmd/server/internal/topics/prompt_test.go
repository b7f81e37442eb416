package topics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		name      string
		dayIndex  int
		totalDays int
		expected  Tier
	}{
		{name: "FirstDayOfTen", dayIndex: 0, totalDays: 10, expected: TierBeginner},
		{name: "ThirdDayOfTen", dayIndex: 2, totalDays: 10, expected: TierBeginner},
		{name: "FourthDayOfTen", dayIndex: 3, totalDays: 10, expected: TierIntermediate},
		{name: "SeventhDayOfTen", dayIndex: 6, totalDays: 10, expected: TierIntermediate},
		{name: "EighthDayOfTen", dayIndex: 7, totalDays: 10, expected: TierAdvanced},
		{name: "LastDayOfTen", dayIndex: 9, totalDays: 10, expected: TierAdvanced},
		{name: "SingleDayChallenge", dayIndex: 0, totalDays: 1, expected: TierAdvanced},
		{name: "FirstOfSeven", dayIndex: 0, totalDays: 7, expected: TierBeginner},
		{name: "ZeroTotalDefaultsToBeginner", dayIndex: 0, totalDays: 0, expected: TierBeginner},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TierFor(tt.dayIndex, tt.totalDays), "wrong tier")
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Run("CarriesGoalAndTags", func(t *testing.T) {
		prompt := BuildPrompt(
			"sound confident on camera",
			[]string{"pacing", "eye contact"},
			History{},
			0,
			10,
		)

		assert.Contains(t, prompt, "sound confident on camera")
		assert.Contains(t, prompt, "pacing, eye contact")
		assert.Contains(t, prompt, "day 1 of a 10 day")
		assert.Contains(t, prompt, string(TierBeginner))
	})

	t.Run("ListsEarlierTopicsAndScores", func(t *testing.T) {
		prompt := BuildPrompt(
			"sound confident on camera",
			nil,
			History{
				Topics:            []string{"describe your morning routine"},
				AnalysisSummaries: []string{"voice clarity 70, confidence 60, pacing 55, engagement 65"},
			},
			5,
			10,
		)

		assert.Contains(t, prompt, "describe your morning routine")
		assert.Contains(t, prompt, "voice clarity 70")
		assert.Contains(t, prompt, string(TierIntermediate))
	})

	t.Run("OmitsEmptySections", func(t *testing.T) {
		prompt := BuildPrompt("sound confident on camera", nil, History{}, 9, 10)

		assert.NotContains(t, prompt, "Topics already used")
		assert.NotContains(t, prompt, "Scores from earlier takes")
		assert.Contains(t, prompt, string(TierAdvanced))
	})
}
