package types

// Phase represents the pipeline's coarse-grained lifecycle stage.
type Phase string

// Phase constants. Succeeded and Failed are terminal (absorbing).
const (
	PhaseIdle        Phase = "idle"
	PhaseStreaming   Phase = "streaming"
	PhaseSummarizing Phase = "summarizing"
	PhaseSucceeded   Phase = "succeeded"
	PhaseFailed      Phase = "failed"
)

// IsTerminal returns true if this phase is absorbing: once reached,
// no further stream event mutates pipeline state.
func (p Phase) IsTerminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// IsActive returns true while a run is consuming the stream.
func (p Phase) IsActive() bool {
	return p == PhaseStreaming || p == PhaseSummarizing
}

// PipelineState is the single coherent observable state of one pipeline run.
//
// Text is append-only while the phase is active, frozen once a terminal
// phase is reached, and cleared only by an explicit reset. Err is empty
// unless the phase is Failed. ResultID is zero unless the phase is
// Succeeded.
type PipelineState struct {
	Phase    Phase
	Text     string
	Err      string
	ResultID int64
}

// NewPipelineState returns the initial state of a freshly constructed
// or freshly reset pipeline.
func NewPipelineState() PipelineState {
	return PipelineState{Phase: PhaseIdle}
}
