package types

type (
	UploadTargetResponse struct {
		SubmissionID string          `json:"submission_id" validate:"required"`
		UploadURL    string          `json:"upload_url"    validate:"required"`
		State        SubmissionState `json:"state"         validate:"required"`
	}

	SubmissionStatusResponse struct {
		SubmissionID  string          `json:"submission_id"   validate:"required"`
		ChallengeID   string          `json:"challenge_id"    validate:"required"`
		State         SubmissionState `json:"state"           validate:"required"`
		ErrorMessage  *string         `json:"error_message,omitempty"`
		Topic         *string         `json:"topic,omitempty"`
		TopicError    *string         `json:"topic_error,omitempty"`
		TranscodedURL *string         `json:"transcoded_url,omitempty"`
		Analysis      any             `json:"analysis,omitempty"`
		RawAnalysis   *string         `json:"raw_analysis,omitempty"`
		PollRetries   int             `json:"poll_retries"`
	}

	// RetryAction tells the caller what the retry entry point actually did.
	RetryAction string

	RetryResponse struct {
		SubmissionID string          `json:"submission_id" validate:"required"`
		State        SubmissionState `json:"state"         validate:"required"`
		Action       RetryAction     `json:"action"        validate:"required"`
	}
)

const (
	// A step was re-scheduled on the durable queue
	RetryActionRescheduled RetryAction = "rescheduled"
	// Nothing to do server side, the client must upload again
	RetryActionReupload RetryAction = "reupload"
)
