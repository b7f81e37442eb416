// Package score interprets analyzer output. The analyzer is an external
// model and its responses range from clean JSON to prose with numbers buried
// in it, so parsing degrades gracefully instead of failing the submission.
package score

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	MinScore = 0
	MaxScore = 100

	// NeutralScore stands in for any metric the analyzer did not report.
	NeutralScore = 50

	// fallbackLookahead bounds how far past a metric name the regex fallback
	// searches for a number.
	fallbackLookahead = 24
)

// Metric names as they appear in the scoring prompt and in responses.
const (
	MetricVoiceClarity = "voice clarity"
	MetricConfidence   = "confidence"
	MetricPacing       = "pacing"
	MetricEngagement   = "engagement"
)

type Analysis struct {
	VoiceClarity int    `json:"voice_clarity"`
	Confidence   int    `json:"confidence"`
	Pacing       int    `json:"pacing"`
	Engagement   int    `json:"engagement"`
	Feedback     string `json:"feedback,omitempty"`
}

// Summary renders the scores as a short line of text, used as history context
// when prompting for later topics.
func (a Analysis) Summary() string {
	parts := []string{
		fmt.Sprintf("%s %d", MetricVoiceClarity, a.VoiceClarity),
		fmt.Sprintf("%s %d", MetricConfidence, a.Confidence),
		fmt.Sprintf("%s %d", MetricPacing, a.Pacing),
		fmt.Sprintf("%s %d", MetricEngagement, a.Engagement),
	}
	return strings.Join(parts, ", ")
}

func clamp(v float64) int {
	rounded := int(math.Round(v))
	if rounded < MinScore {
		return MinScore
	}
	if rounded > MaxScore {
		return MaxScore
	}
	return rounded
}

// jsonKeys maps a metric name to the keys it may appear under in a structured
// response.
func jsonKeys(metric string) []string {
	underscored := strings.ReplaceAll(metric, " ", "_")
	return []string{underscored, metric}
}

func metricFromMap(fields map[string]any, metric string) (int, bool) {
	for _, key := range jsonKeys(metric) {
		raw, ok := fields[key]
		if !ok {
			continue
		}

		switch v := raw.(type) {
		case float64:
			return clamp(v), true
		case string:
			if n, ok := leadingNumber(v); ok {
				return clamp(n), true
			}
		}
	}
	return 0, false
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

func leadingNumber(s string) (float64, bool) {
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	var n float64
	if _, err := fmt.Sscanf(match, "%f", &n); err != nil {
		return 0, false
	}
	return n, true
}

// objectSpans returns every balanced {...} span in s, longest first.
func objectSpans(s string) []string {
	var spans []string
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		depth := 0
		for end := start; end < len(s); end++ {
			switch s[end] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					spans = append(spans, s[start:end+1])
					end = len(s)
				}
			}
		}
	}

	// longest span first so the outermost object wins
	sort.Slice(spans, func(i, j int) bool {
		return len(spans[i]) > len(spans[j])
	})
	return spans
}

func structuredFields(raw string) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err == nil {
		return fields
	}

	for _, span := range objectSpans(raw) {
		if err := json.Unmarshal([]byte(span), &fields); err == nil {
			return fields
		}
	}

	return nil
}

func metricFromText(raw, metric string) (int, bool) {
	// "<metric> ... <number>" with a bounded gap, case-insensitive
	pattern := regexp.MustCompile(`(?i)` + strings.ReplaceAll(regexp.QuoteMeta(metric), " ", `\s+`) +
		fmt.Sprintf(`\D{0,%d}?(\d+(?:\.\d+)?)`, fallbackLookahead))
	match := pattern.FindStringSubmatch(raw)
	if match == nil {
		return 0, false
	}
	n, ok := leadingNumber(match[1])
	if !ok {
		return 0, false
	}
	return clamp(n), true
}

// Parse interprets an analyzer response. It tries structured JSON first (the
// whole body, then any embedded object span), then falls back to per-metric
// text extraction. Every metric always ends up with a value; unrecoverable
// metrics default to NeutralScore.
func Parse(raw string) Analysis {
	analysis := Analysis{
		VoiceClarity: NeutralScore,
		Confidence:   NeutralScore,
		Pacing:       NeutralScore,
		Engagement:   NeutralScore,
	}

	targets := []struct {
		metric string
		dest   *int
	}{
		{MetricVoiceClarity, &analysis.VoiceClarity},
		{MetricConfidence, &analysis.Confidence},
		{MetricPacing, &analysis.Pacing},
		{MetricEngagement, &analysis.Engagement},
	}

	fields := structuredFields(raw)
	if fields != nil {
		if feedback, ok := fields["feedback"].(string); ok {
			analysis.Feedback = feedback
		}
	}

	for _, target := range targets {
		if fields != nil {
			if v, ok := metricFromMap(fields, target.metric); ok {
				*target.dest = v
				continue
			}
		}
		if v, ok := metricFromText(raw, target.metric); ok {
			*target.dest = v
		}
	}

	return analysis
}
