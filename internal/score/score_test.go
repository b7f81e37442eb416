package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected Analysis
	}{
		{
			name: "CleanJSON",
			raw:  `{"voice_clarity": 80, "confidence": 70, "pacing": 60, "engagement": 90, "feedback": "good energy"}`,
			expected: Analysis{
				VoiceClarity: 80,
				Confidence:   70,
				Pacing:       60,
				Engagement:   90,
				Feedback:     "good energy",
			},
		},
		{
			name: "ClampsAboveRange",
			raw:  `{"voice_clarity": 80, "confidence": 150, "pacing": 60, "engagement": 90}`,
			expected: Analysis{
				VoiceClarity: 80,
				Confidence:   100,
				Pacing:       60,
				Engagement:   90,
			},
		},
		{
			name: "ClampsBelowRange",
			raw:  `{"voice_clarity": -5, "confidence": 70, "pacing": 60, "engagement": 90}`,
			expected: Analysis{
				VoiceClarity: 0,
				Confidence:   70,
				Pacing:       60,
				Engagement:   90,
			},
		},
		{
			name: "MissingMetricsDefaultToNeutral",
			raw:  `{"confidence": 70}`,
			expected: Analysis{
				VoiceClarity: NeutralScore,
				Confidence:   70,
				Pacing:       NeutralScore,
				Engagement:   NeutralScore,
			},
		},
		{
			name: "EmbeddedJSONInProse",
			raw:  "Sure! Here is the scoring you asked for:\n```json\n{\"voice_clarity\": 75, \"confidence\": 65, \"pacing\": 55, \"engagement\": 85}\n```\nLet me know if you need anything else.",
			expected: Analysis{
				VoiceClarity: 75,
				Confidence:   65,
				Pacing:       55,
				Engagement:   85,
			},
		},
		{
			name: "SpacedKeysInJSON",
			raw:  `{"voice clarity": 75, "confidence": 65, "pacing": 55, "engagement": 85}`,
			expected: Analysis{
				VoiceClarity: 75,
				Confidence:   65,
				Pacing:       55,
				Engagement:   85,
			},
		},
		{
			name: "TextFallback",
			raw:  "voice clarity: 85/100, confidence looked like a 72, pacing was 64 and engagement maybe 91.",
			expected: Analysis{
				VoiceClarity: 85,
				Confidence:   72,
				Pacing:       64,
				Engagement:   91,
			},
		},
		{
			name: "TextFallbackPartial",
			raw:  "The speaker's pacing scored 40. I could not assess anything else.",
			expected: Analysis{
				VoiceClarity: NeutralScore,
				Confidence:   NeutralScore,
				Pacing:       40,
				Engagement:   NeutralScore,
			},
		},
		{
			name: "NumericStringsInJSON",
			raw:  `{"voice_clarity": "80", "confidence": "70", "pacing": "60", "engagement": "90"}`,
			expected: Analysis{
				VoiceClarity: 80,
				Confidence:   70,
				Pacing:       60,
				Engagement:   90,
			},
		},
		{
			name: "Garbage",
			raw:  "I'm sorry, I cannot score this video.",
			expected: Analysis{
				VoiceClarity: NeutralScore,
				Confidence:   NeutralScore,
				Pacing:       NeutralScore,
				Engagement:   NeutralScore,
			},
		},
		{
			name: "Empty",
			raw:  "",
			expected: Analysis{
				VoiceClarity: NeutralScore,
				Confidence:   NeutralScore,
				Pacing:       NeutralScore,
				Engagement:   NeutralScore,
			},
		},
		{
			name: "NumberBeyondLookaheadIgnored",
			raw:  "confidence is something we will talk about at length for quite a while before any digits 88",
			expected: Analysis{
				VoiceClarity: NeutralScore,
				Confidence:   NeutralScore,
				Pacing:       NeutralScore,
				Engagement:   NeutralScore,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.raw)
			assert.Equal(t, tt.expected, got, "parsed analysis matches")
		})
	}
}

func TestSummary(t *testing.T) {
	a := Analysis{VoiceClarity: 85, Confidence: 72, Pacing: 64, Engagement: 91}
	assert.Equal(t, "voice clarity 85, confidence 72, pacing 64, engagement 91", a.Summary())
}
