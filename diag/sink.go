// Package diag defines the diagnostics-reporting capability consumed by
// the streaming pipeline.
//
// The pipeline reports only genuine system faults here: malformed terminal
// events and unclassified failures. Validation errors, explicit server
// errors, business-rule conflicts, and cancellations are expected outcomes
// and never reach a Sink.
package diag

import (
	"context"

	"github.com/tessellary/ideastream/log"
	"github.com/tessellary/ideastream/types"
)

// Context carries enough information to reproduce a reported fault.
// Input echoes the normalized request fields; the request carries no
// credentials, and transport headers are never included.
type Context struct {
	Feature string            `json:"feature"`
	RunID   string            `json:"run_id"`
	Phase   types.Phase       `json:"phase"`
	Input   map[string]string `json:"input,omitempty"`
}

// Sink is the narrow fault-reporting capability injected into the
// pipeline facade. Implementations must be safe for concurrent use and
// must never panic: a broken diagnostics channel must not take down a run.
type Sink interface {
	Report(ctx context.Context, err error, rctx Context)
}

// NopSink discards all reports.
type NopSink struct{}

// Report implements Sink.
func (NopSink) Report(context.Context, error, Context) {}

// LogSink records reports on a structured logger.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink that writes reports at error level.
func NewLogSink(logger *log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Report implements Sink.
func (s *LogSink) Report(_ context.Context, err error, rctx Context) {
	s.logger.Error("diagnostics report", map[string]any{
		"error":   err.Error(),
		"feature": rctx.Feature,
		"run_id":  rctx.RunID,
		"phase":   string(rctx.Phase),
		"input":   rctx.Input,
	})
}

// Interface compliance checks.
var (
	_ Sink = NopSink{}
	_ Sink = (*LogSink)(nil)
)
