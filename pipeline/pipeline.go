package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tessellary/ideastream/diag"
	"github.com/tessellary/ideastream/iox"
	"github.com/tessellary/ideastream/log"
	"github.com/tessellary/ideastream/metrics"
	"github.com/tessellary/ideastream/transport"
	"github.com/tessellary/ideastream/types"
	"github.com/tessellary/ideastream/wire"
)

// Feature is the diagnostics feature name for this pipeline.
const Feature = "idea_generation"

// ErrRunActive is returned by Start while a previous run has not reached
// a terminal phase. A new run never supersedes or interleaves with an
// active one; the caller must cancel first.
var ErrRunActive = errors.New("a generation run is already active")

// Navigator is the environment capability that moves the application to
// the result location after a successful run.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(target string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(target string) { f(target) }

// Options configures a Pipeline.
type Options struct {
	// Transport opens the generation byte stream (required).
	Transport transport.Opener
	// Navigator executes navigation commands. Nil disables navigation.
	Navigator Navigator
	// Diagnostics receives system-fault reports. Nil means discard.
	Diagnostics diag.Sink
	// Logger for structured run logging. Nil means discard.
	Logger *log.Logger
	// Collector for run metrics. Nil means no metrics.
	Collector *metrics.Collector
	// AutoNavigate enables the navigation command on success.
	AutoNavigate bool
	// FrameObserver, when set, sees every complete wire frame in arrival
	// order. Used for transcript recording.
	FrameObserver func(frame []byte)
	// OnTransition is invoked after every observable state change.
	OnTransition func(types.PipelineState)
	// OnStreamEnd is invoked exactly once per run, on whichever path
	// reaches a terminal phase first.
	OnStreamEnd func(types.PipelineState, types.Outcome)
}

// Pipeline is the public facade over one streaming generation pipeline.
//
// At most one run is active at a time. Start validates and returns
// without blocking; progress is observed through State, OnTransition and
// OnStreamEnd. The zero value is not usable; construct with New.
type Pipeline struct {
	mu        sync.Mutex
	state     types.PipelineState
	outcome   *types.Outcome
	pending   types.Outcome
	runID     string
	reqEcho   map[string]string
	endOnce   *sync.Once
	cancelRun context.CancelFunc
	active    bool
	logger    *log.Logger

	reducer       Reducer
	opener        transport.Opener
	navigator     Navigator
	sink          diag.Sink
	baseLogger    *log.Logger
	collector     *metrics.Collector
	frameObserver func([]byte)
	onTransition  func(types.PipelineState)
	onStreamEnd   func(types.PipelineState, types.Outcome)
}

// New creates a Pipeline in the Idle phase.
func New(opts Options) (*Pipeline, error) {
	if opts.Transport == nil {
		return nil, errors.New("pipeline requires a transport")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = diag.NopSink{}
	}

	return &Pipeline{
		state:         types.NewPipelineState(),
		logger:        opts.Logger,
		reducer:       Reducer{AutoNavigate: opts.AutoNavigate},
		opener:        opts.Transport,
		navigator:     opts.Navigator,
		sink:          opts.Diagnostics,
		baseLogger:    opts.Logger,
		collector:     opts.Collector,
		frameObserver: opts.FrameObserver,
		onTransition:  opts.OnTransition,
		onStreamEnd:   opts.OnStreamEnd,
	}, nil
}

// State returns a snapshot of the current observable state.
func (p *Pipeline) State() types.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Outcome returns the terminal outcome of the most recent run, or nil if
// no run has ended since construction or the last reset.
func (p *Pipeline) Outcome() *types.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outcome == nil {
		return nil
	}
	out := *p.outcome
	return &out
}

// RunID returns the identifier of the current or most recent run.
func (p *Pipeline) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Start validates the request and begins a streaming run.
//
// Validation happens synchronously, before any network activity: a
// *types.ValidationError is returned to the caller and never reaches the
// transport or diagnostics. On success the phase moves Idle -> Streaming,
// accumulated text and error are cleared, and consumption proceeds on a
// background goroutine. Start returns ErrRunActive while a previous run
// is still non-terminal.
func (p *Pipeline) Start(ctx context.Context, req types.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	normalized := req.Normalize()

	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return ErrRunActive
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)

	p.runID = runID
	p.logger = p.baseLogger.WithRun(runID)
	p.state = types.PipelineState{Phase: types.PhaseStreaming}
	p.outcome = nil
	p.pending = types.Outcome{}
	p.endOnce = &sync.Once{}
	p.cancelRun = cancel
	p.active = true
	p.reqEcho = map[string]string{
		"title":    normalized.Title,
		"model":    normalized.Model,
		"provider": normalized.Provider,
	}
	st := p.state
	logger := p.logger
	p.mu.Unlock()

	p.collector.IncRunStarted()
	logger.Info("starting generation run", map[string]any{
		"model":    normalized.Model,
		"provider": normalized.Provider,
	})
	p.notifyTransition(st)

	go p.run(runCtx, normalized)
	return nil
}

// Cancel aborts the active run: the transport read is interrupted,
// buffered-but-unprocessed bytes are discarded, and the state moves to
// Failed immediately. No-op when no run is active.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	cancel := p.cancelRun
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.finishFailure("generation canceled", types.OutcomeCanceled, nil)
}

// Reset clears state back to Idle. Legal only from a terminal or the
// initial phase; mid-run it is a no-op and reports false.
func (p *Pipeline) Reset() bool {
	p.mu.Lock()
	next, ok := p.reducer.Reset(p.state)
	if ok {
		p.state = next
		p.outcome = nil
		p.pending = types.Outcome{}
	}
	st := p.state
	p.mu.Unlock()

	if ok {
		p.notifyTransition(st)
	}
	return ok
}

// run owns the whole lifetime of one streaming run.
func (p *Pipeline) run(ctx context.Context, req types.Request) {
	defer func() {
		// An unclassified fault inside the consumption path is a system
		// fault: fail the run and report it.
		if r := recover(); r != nil {
			p.finishFailure("internal error while consuming stream",
				types.OutcomeStreamError, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	stream, err := p.opener.Open(ctx, &req)
	if err != nil {
		if ctx.Err() != nil {
			p.finishFailure("generation canceled", types.OutcomeCanceled, nil)
			return
		}
		p.logger.Error("transport open failed", map[string]any{
			"error": err.Error(),
		})
		p.finishFailure("generation request failed", types.OutcomeStreamError, nil)
		return
	}
	defer iox.DiscardClose(stream)

	consumer := NewConsumer(p.logger, p.collector, p.applyEvent, p.frameObserver)
	consumeErr := consumer.Run(ctx, stream)

	switch {
	case consumeErr == nil:
		p.mu.Lock()
		terminal := p.state.Phase.IsTerminal()
		p.mu.Unlock()
		if terminal {
			p.finish()
			return
		}
		// Clean end-of-stream without a terminal event.
		p.finishFailure("stream ended unexpectedly", types.OutcomeStreamError, nil)

	case IsCanceledError(consumeErr):
		p.finishFailure("generation canceled", types.OutcomeCanceled, nil)

	case IsProtocolError(consumeErr):
		p.finishFailure("generation stream returned no usable result",
			types.OutcomeStreamError, consumeErr)

	default:
		p.logger.Error("stream consumption failed", map[string]any{
			"error": consumeErr.Error(),
		})
		p.finishFailure("generation stream was interrupted", types.OutcomeStreamError, nil)
	}
}

// applyEvent feeds one event through the reducer and reports whether a
// terminal phase was reached. Events are applied strictly in arrival
// order; this is the only writer of state during consumption.
func (p *Pipeline) applyEvent(ev wire.Event) bool {
	p.mu.Lock()
	prev := p.state
	next, cmds := p.reducer.Apply(prev, ev)
	p.state = next
	if next.Phase.IsTerminal() && !prev.Phase.IsTerminal() {
		p.pending = outcomeForEvent(ev, next)
	}
	changed := next != prev
	p.mu.Unlock()

	if changed {
		p.notifyTransition(next)
	}
	p.execute(cmds, prev.Phase)
	return next.Phase.IsTerminal()
}

// outcomeForEvent derives the terminal outcome from the event that caused
// the transition.
func outcomeForEvent(ev wire.Event, final types.PipelineState) types.Outcome {
	if done, ok := ev.(wire.Done); ok && done.Success() {
		return types.Outcome{
			Status:   types.OutcomeSuccess,
			Message:  "generation completed",
			ResultID: done.ConversationID,
		}
	}
	return types.Outcome{
		Status:  types.OutcomeGenerationError,
		Message: final.Err,
	}
}

// finishFailure forces the Failed phase and completes the run. A non-nil
// reportErr marks the failure as a system fault forwarded to diagnostics.
func (p *Pipeline) finishFailure(message string, status types.OutcomeStatus, reportErr error) {
	p.mu.Lock()
	prevPhase := p.state.Phase
	next, cmds := p.reducer.Fail(p.state, message, reportErr)
	changed := next != p.state
	p.state = next
	if !prevPhase.IsTerminal() {
		p.pending = types.Outcome{Status: status, Message: message}
	}
	p.mu.Unlock()

	if changed {
		p.notifyTransition(next)
	}
	p.execute(cmds, prevPhase)
	p.finish()
}

// finish fires the exactly-once end-of-run lifecycle: outcome publication,
// metrics, and the stream-ended notification.
func (p *Pipeline) finish() {
	p.mu.Lock()
	once := p.endOnce
	st := p.state
	out := p.pending
	logger := p.logger
	p.mu.Unlock()

	if once == nil {
		return
	}
	once.Do(func() {
		p.mu.Lock()
		p.active = false
		p.outcome = &out
		p.mu.Unlock()

		switch out.Status {
		case types.OutcomeSuccess:
			p.collector.IncRunSucceeded()
		case types.OutcomeCanceled:
			p.collector.IncRunCanceled()
		default:
			p.collector.IncRunFailed()
		}

		logger.Info("generation run ended", map[string]any{
			"status":  string(out.Status),
			"message": out.Message,
		})

		if p.onStreamEnd != nil {
			p.onStreamEnd(st, out)
		}
	})
}

// execute runs reducer commands outside the pure core. phaseAtFailure is
// the phase before the transition that emitted the commands, giving
// diagnostics reports their phase-at-failure context.
func (p *Pipeline) execute(cmds []Command, phaseAtFailure types.Phase) {
	for _, cmd := range cmds {
		switch cmd := cmd.(type) {
		case NavigateCommand:
			if p.navigator != nil {
				p.navigator.Navigate(cmd.Target)
			}
		case ReportCommand:
			p.mu.Lock()
			rctx := diag.Context{
				Feature: Feature,
				RunID:   p.runID,
				Phase:   phaseAtFailure,
				Input:   p.reqEcho,
			}
			p.mu.Unlock()
			// The run context may already be canceled; reports must
			// still go out.
			p.sink.Report(context.Background(), cmd.Err, rctx)
		}
	}
}

func (p *Pipeline) notifyTransition(st types.PipelineState) {
	if p.onTransition != nil {
		p.onTransition(st)
	}
}
