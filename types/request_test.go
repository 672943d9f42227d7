package types

import (
	"errors"
	"testing"
)

func TestRequest_Validate(t *testing.T) {
	valid := Request{
		Title:      "Async job queues",
		Hypothesis: "A queue smooths bursty load",
		Model:      "gpt-4o",
		Provider:   "openai",
	}

	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{name: "valid", mutate: func(*Request) {}},
		{
			name:      "empty title",
			mutate:    func(r *Request) { r.Title = "" },
			wantField: "title",
		},
		{
			name:      "whitespace title",
			mutate:    func(r *Request) { r.Title = "  \t " },
			wantField: "title",
		},
		{
			name:      "whitespace hypothesis",
			mutate:    func(r *Request) { r.Hypothesis = "\n" },
			wantField: "hypothesis",
		},
		{
			name:      "missing model",
			mutate:    func(r *Request) { r.Model = "" },
			wantField: "model",
		},
		{
			name:      "missing provider",
			mutate:    func(r *Request) { r.Provider = " " },
			wantField: "provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestRequest_Normalize(t *testing.T) {
	req := Request{
		Title:      "  Padded title  ",
		Hypothesis: "\tPadded hypothesis\n",
		Model:      " gpt-4o ",
		Provider:   "openai",
	}

	n := req.Normalize()
	if n.Title != "Padded title" {
		t.Errorf("Title = %q", n.Title)
	}
	if n.Hypothesis != "Padded hypothesis" {
		t.Errorf("Hypothesis = %q", n.Hypothesis)
	}
	if n.Model != "gpt-4o" {
		t.Errorf("Model = %q", n.Model)
	}
}

func TestPhase_IsTerminal(t *testing.T) {
	terminal := map[Phase]bool{
		PhaseIdle:        false,
		PhaseStreaming:   false,
		PhaseSummarizing: false,
		PhaseSucceeded:   true,
		PhaseFailed:      true,
	}
	for phase, want := range terminal {
		if got := phase.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", phase, got, want)
		}
	}
}
