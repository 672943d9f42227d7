package types

// OutcomeStatus classifies how a run terminated.
type OutcomeStatus string

// Outcome status constants.
const (
	// OutcomeSuccess: the stream delivered a done event with a result.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeGenerationError: the server reported an explicit failure
	// (error event, model limit conflict, or done carrying an error).
	// These are expected business outcomes, not system faults.
	OutcomeGenerationError OutcomeStatus = "generation_error"
	// OutcomeStreamError: the transport failed, the stream ended without
	// a terminal event, or a malformed terminal event was received.
	OutcomeStreamError OutcomeStatus = "stream_error"
	// OutcomeCanceled: the caller aborted the run.
	OutcomeCanceled OutcomeStatus = "canceled"
)

// Outcome is the terminal result of a single run.
type Outcome struct {
	Status  OutcomeStatus
	Message string
	// ResultID is the conversation identifier, set only on success.
	ResultID int64
}
