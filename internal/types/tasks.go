package types

type StepKind string

const (
	StepCheckReady    StepKind = "check_ready"
	StepTranscode     StepKind = "transcode"
	StepAnalyze       StepKind = "analyze"
	StepGenerateTopic StepKind = "generate_topic"
)

// StepTask is the durable queue payload for one scheduled pipeline step.
//
// Delivery is at-least-once and possibly out of order, so the task carries
// only enough to find the submission again; every step re-reads persisted
// state and treats a precondition mismatch as a no-op.
type StepTask struct {
	Kind         StepKind `json:"kind"          validate:"required"`
	SubmissionID string   `json:"submission_id" validate:"required,uuid_rfc4122"`
	// Poll attempt counter for StepCheckReady. Advisory only, the persisted
	// counter wins when they disagree.
	Retry int `json:"retry"`
}

func NewCheckReadyTask(submissionID string, retry int) StepTask {
	return StepTask{Kind: StepCheckReady, SubmissionID: submissionID, Retry: retry}
}

func NewTranscodeTask(submissionID string) StepTask {
	return StepTask{Kind: StepTranscode, SubmissionID: submissionID}
}

func NewAnalyzeTask(submissionID string) StepTask {
	return StepTask{Kind: StepAnalyze, SubmissionID: submissionID}
}

func NewGenerateTopicTask(submissionID string) StepTask {
	return StepTask{Kind: StepGenerateTopic, SubmissionID: submissionID}
}
