// Package pipeline turns a server-driven generation stream into
// incrementally observable state: bytes in, one coherent PipelineState and
// a terminal Outcome out.
//
// The package splits into a pure core and an impure shell. Reducer encodes
// every legal phase transition with no I/O; Consumer drives the wire
// decoder and parser against a byte stream; Pipeline is the facade that
// owns the observable state and executes the commands the reducer emits.
package pipeline

import (
	"fmt"

	"github.com/tessellary/ideastream/types"
	"github.com/tessellary/ideastream/wire"
)

// summarizingPhase is the server phase name that promotes a run from
// Streaming to Summarizing.
const summarizingPhase = "summarizing"

// Command is a side effect requested by the reducer and executed by the
// facade, keeping the reducer itself pure.
type Command interface {
	command()
}

// NavigateCommand asks the environment to move to the result location.
// Emitted once, on successful completion with auto-navigation enabled.
type NavigateCommand struct {
	Target string
}

func (NavigateCommand) command() {}

// ReportCommand asks the environment to forward a system fault to the
// diagnostics collaborator.
type ReportCommand struct {
	Err error
}

func (ReportCommand) command() {}

// Reducer is a pure function from (state, event) to (state, commands).
// It owns all transition legality; it performs no navigation, no I/O,
// and no logging.
type Reducer struct {
	// AutoNavigate enables the navigation command on success.
	AutoNavigate bool
}

// ConversationTarget is the navigation target for a completed run.
func ConversationTarget(id int64) string {
	return fmt.Sprintf("/conversations/%d", id)
}

// Apply advances the state machine by one stream event.
//
// Terminal phases are absorbing: once Succeeded or Failed is reached, every
// further event returns the state unchanged. Events are only meaningful
// while a run is active; anything arriving in Idle is ignored as well.
func (r Reducer) Apply(s types.PipelineState, ev wire.Event) (types.PipelineState, []Command) {
	if !s.Phase.IsActive() {
		return s, nil
	}

	switch ev := ev.(type) {
	case wire.MarkdownDelta:
		s.Text += ev.Text
		return s, nil

	case wire.PhaseHint:
		if s.Phase == types.PhaseStreaming && ev.Name == summarizingPhase {
			s.Phase = types.PhaseSummarizing
		}
		return s, nil

	case wire.Progress:
		if ev.Phase == summarizingPhase && ev.Total > 0 {
			s.Phase = types.PhaseSummarizing
		}
		return s, nil

	case wire.ServerError:
		s.Phase = types.PhaseFailed
		s.Err = ev.Message
		return s, nil

	case wire.Conflict:
		// Business-rule failure: surfaced to the caller, never reported
		// to diagnostics.
		s.Phase = types.PhaseFailed
		s.Err = ev.Message
		return s, nil

	case wire.Done:
		if ev.Success() {
			s.Phase = types.PhaseSucceeded
			s.ResultID = ev.ConversationID
			var cmds []Command
			if r.AutoNavigate {
				cmds = append(cmds, NavigateCommand{Target: ConversationTarget(ev.ConversationID)})
			}
			return s, cmds
		}
		s.Phase = types.PhaseFailed
		s.Err = ev.ErrMessage
		return s, nil

	default:
		return s, nil
	}
}

// Fail forces the failed phase with the given user-facing message.
// When reportErr is non-nil the failure is a system fault and a
// ReportCommand is emitted; expected failures (cancellation, transport
// loss) pass nil. Terminal phases stay absorbing.
func (r Reducer) Fail(s types.PipelineState, message string, reportErr error) (types.PipelineState, []Command) {
	if s.Phase.IsTerminal() {
		return s, nil
	}

	s.Phase = types.PhaseFailed
	s.Err = message

	var cmds []Command
	if reportErr != nil {
		cmds = append(cmds, ReportCommand{Err: reportErr})
	}
	return s, cmds
}

// Reset clears the state back to Idle. Legal only from a terminal or the
// initial phase; mid-run it is a no-op and reports false.
func (r Reducer) Reset(s types.PipelineState) (types.PipelineState, bool) {
	if s.Phase.IsActive() {
		return s, false
	}
	return types.NewPipelineState(), true
}
