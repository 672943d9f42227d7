package cmd

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tessellary/ideastream/diag"
	"github.com/tessellary/ideastream/log"
	"github.com/tessellary/ideastream/metrics"
	"github.com/tessellary/ideastream/pipeline"
	"github.com/tessellary/ideastream/transport"
	"github.com/tessellary/ideastream/types"
)

// TestRunProgram_StreamsToCompletion drives a real pipeline into the run
// view through the same wiring runWithTUI uses. The run must only start
// once the program is receiving, otherwise the first transition blocks
// inside Send and the view never renders.
func TestRunProgram_StreamsToCompletion(t *testing.T) {
	srv := streamServer(t,
		`{"type":"markdown_delta","data":"Hello "}`,
		`{"type":"markdown_delta","data":"world"}`,
		`{"type":"done","data":{"conversation":{"id":42}}}`,
	)
	opener, err := transport.New(transport.Config{URL: srv.URL})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}

	opts := pipeline.Options{
		Transport:   opener,
		Diagnostics: diag.NopSink{},
		Logger:      log.Nop(),
		Collector:   metrics.NewCollector(),
	}
	req := types.Request{
		Title:      "An idea",
		Hypothesis: "It works",
		Model:      "gpt-4o",
		Provider:   "openai",
	}

	prog, p, err := newRunProgram(opts, req,
		tea.WithInput(strings.NewReader("")),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	if err != nil {
		t.Fatalf("newRunProgram: %v", err)
	}

	go func() {
		if err := p.Start(context.Background(), req); err != nil {
			t.Errorf("Start: %v", err)
			prog.Quit()
		}
	}()

	// Quit once the run reaches a terminal outcome. The kill deadline
	// turns a wiring regression into a failure instead of a hung suite.
	go func() {
		deadline := time.Now().Add(5 * time.Second)
		for p.Outcome() == nil {
			if time.Now().After(deadline) {
				prog.Kill()
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		prog.Quit()
	}()

	final, err := prog.Run()
	if err != nil {
		t.Fatalf("program did not finish cleanly: %v", err)
	}

	out := p.Outcome()
	if out == nil {
		t.Fatal("run has no outcome after the view exited")
	}
	if out.Status != types.OutcomeSuccess {
		t.Fatalf("outcome = %s, want %s", out.Status, types.OutcomeSuccess)
	}
	if out.ResultID != 42 {
		t.Errorf("result ID = %d, want 42", out.ResultID)
	}

	view := final.View()
	if !strings.Contains(view, "Hello world") {
		t.Errorf("final view does not show the streamed text:\n%s", view)
	}
	if !strings.Contains(view, "succeeded") {
		t.Errorf("final view does not show the terminal status:\n%s", view)
	}
}

// TestRunProgram_StartFailureQuitsView covers the synchronous failure
// path: an invalid request must exit the view and surface the validation
// error instead of leaving the program running with no run behind it.
func TestRunProgram_StartFailureQuitsView(t *testing.T) {
	opts := pipeline.Options{
		Transport:   openerNotCalled{t},
		Diagnostics: diag.NopSink{},
		Logger:      log.Nop(),
		Collector:   metrics.NewCollector(),
	}
	req := types.Request{Hypothesis: "no title"}

	prog, p, err := newRunProgram(opts, req,
		tea.WithInput(strings.NewReader("")),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	if err != nil {
		t.Fatalf("newRunProgram: %v", err)
	}

	startErr := make(chan error, 1)
	go func() {
		err := p.Start(context.Background(), req)
		startErr <- err
		if err != nil {
			prog.Quit()
		}
	}()

	if _, err := prog.Run(); err != nil {
		t.Fatalf("program did not finish cleanly: %v", err)
	}

	var verr *types.ValidationError
	if err := <-startErr; !errors.As(err, &verr) {
		t.Fatalf("Start error = %v, want a validation error", err)
	}
	if verr.Field != "title" {
		t.Errorf("validation field = %q, want %q", verr.Field, "title")
	}
}

// openerNotCalled fails the test if the transport is reached.
type openerNotCalled struct {
	t *testing.T
}

func (o openerNotCalled) Open(context.Context, *types.Request) (io.ReadCloser, error) {
	o.t.Error("transport opened for a request that failed validation")
	return nil, errors.New("unexpected open")
}
