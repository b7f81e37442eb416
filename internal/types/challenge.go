package types

type (
	ChallengeCreate struct {
		Title           string   `json:"title"            validate:"required,max=200"`
		GoalPrompt      string   `json:"goal_prompt"      validate:"required,max=2000"`
		ImprovementTags []string `json:"improvement_tags" validate:"max=16,dive,max=64"`
		RequiredTakes   int      `json:"required_takes"   validate:"required,min=1,max=90"`
		AutoTopics      bool     `json:"auto_topics"`
	}

	ChallengeResponse struct {
		ChallengeID     string   `json:"challenge_id"     validate:"required"`
		Title           string   `json:"title"            validate:"required"`
		GoalPrompt      string   `json:"goal_prompt"      validate:"required"`
		ImprovementTags []string `json:"improvement_tags"`
		RequiredTakes   int      `json:"required_takes"   validate:"required"`
		AutoTopics      bool     `json:"auto_topics"`
		// Open slot for the next take, if one exists
		CurrentSubmissionID *string `json:"current_submission_id"`
	}

	ChallengeStatusResponse struct {
		ChallengeResponse
		// Every slot materialized so far, ordered by day
		Submissions []SubmissionStatusResponse `json:"submissions"`
	}
)
