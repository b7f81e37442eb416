package types

// SubmissionState is the position of a take in the processing pipeline.
//
// States only ever move forward. A failure leaves the submission parked at its
// current state with an error message attached; it moves again only when the
// owner retries.
type SubmissionState string

const (
	// Slot exists, nothing uploaded yet
	SubmissionStateInitial SubmissionState = "initial"
	// An upload destination was minted at the video host
	SubmissionStateUploadPending SubmissionState = "upload_pending"
	// Client finished the byte transfer; waiting on the host to process
	SubmissionStateUploaded SubmissionState = "uploaded"
	// Host reports the asset playable
	SubmissionStateHosted SubmissionState = "hosted"
	// Downsized derivative produced and archived
	SubmissionStateTranscoded SubmissionState = "transcoded"
	// Derivative handed to the analyzer; awaiting or retrying the scoring call
	SubmissionStateAnalyzing SubmissionState = "analyzing"
	// Terminal success
	SubmissionStateAnalyzed SubmissionState = "analyzed"
	// Terminal failure after exhausting host status polls
	SubmissionStateTimedOut SubmissionState = "processing_timeout"
)

// Polling reports whether the coordinator is waiting on an external
// asynchronous process while in `s`.
func (s SubmissionState) Polling() bool {
	return s == SubmissionStateUploaded
}

// Terminal reports whether no automatic transition leaves `s`.
func (s SubmissionState) Terminal() bool {
	return s == SubmissionStateAnalyzed || s == SubmissionStateTimedOut
}
