package topics

import (
	"fmt"
	"strings"
)

// Difficulty tier of a practice day, derived from how far into the challenge
// the day falls.
type Tier string

const (
	TierBeginner     Tier = "beginner"
	TierIntermediate Tier = "intermediate"
	TierAdvanced     Tier = "advanced"
)

const (
	beginnerCutoff     = 0.3
	intermediateCutoff = 0.7
)

// TierFor buckets a day by its position in the challenge. Day indexes are
// zero based; day 0 of a 10 day challenge sits at progress 0.1.
func TierFor(dayIndex, totalDays int) Tier {
	if totalDays <= 0 {
		return TierBeginner
	}

	progress := float64(dayIndex+1) / float64(totalDays)
	switch {
	case progress <= beginnerCutoff:
		return TierBeginner
	case progress <= intermediateCutoff:
		return TierIntermediate
	default:
		return TierAdvanced
	}
}

var tierConstraints = map[Tier]string{
	TierBeginner: "Keep the topic comfortable and familiar. " +
		"The speaker should be able to talk about it without preparation.",
	TierIntermediate: "Add one structural constraint, such as opening with a story " +
		"or defending an opinion the speaker may not hold.",
	TierAdvanced: "Make it demanding: an unfamiliar angle, a persuasion goal, " +
		"or a strict structure the speaker must hold for the whole take.",
}

// History is what earlier days contribute to the prompt. Failed topic
// generations are excluded before it gets here.
type History struct {
	Topics            []string
	AnalysisSummaries []string
}

// BuildPrompt assembles the topic generation prompt for one practice day.
// Pure; everything it needs comes in as arguments.
func BuildPrompt(
	goal string,
	improvementTags []string,
	history History,
	dayIndex int,
	totalDays int,
) string {
	tier := TierFor(dayIndex, totalDays)

	var b strings.Builder
	fmt.Fprintf(&b, "You are designing day %d of a %d day speaking practice challenge.\n", dayIndex+1, totalDays)
	fmt.Fprintf(&b, "The speaker's goal: %s\n", goal)

	if len(improvementTags) > 0 {
		fmt.Fprintf(&b, "They want to improve: %s\n", strings.Join(improvementTags, ", "))
	}

	if len(history.Topics) > 0 {
		fmt.Fprintf(&b, "Topics already used, do not repeat them:\n")
		for _, topic := range history.Topics {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
	}

	if len(history.AnalysisSummaries) > 0 {
		fmt.Fprintf(&b, "Scores from earlier takes, oldest first:\n")
		for _, summary := range history.AnalysisSummaries {
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}

	fmt.Fprintf(&b, "Difficulty for this day is %s. %s\n", tier, tierConstraints[tier])
	fmt.Fprintf(&b, "Respond with the topic as one or two sentences and nothing else.")

	return b.String()
}

// PlaceholderTopic is shown when generation fails, so the speaker always has
// something usable while the regenerate affordance stays available.
func PlaceholderTopic(goal string, dayIndex int) string {
	return fmt.Sprintf(
		"Day %d: record a short take working toward your goal: %s",
		dayIndex+1, goal,
	)
}
