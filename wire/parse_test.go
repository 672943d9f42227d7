package wire

import (
	"strings"
	"testing"
)

func TestParseFrame_MarkdownDelta(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"markdown_delta","data":"Hello "}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	delta, ok := ev.(MarkdownDelta)
	if !ok {
		t.Fatalf("event type = %T, want MarkdownDelta", ev)
	}
	if delta.Text != "Hello " {
		t.Errorf("Text = %q, want %q", delta.Text, "Hello ")
	}
}

func TestParseFrame_State(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"state","data":"summarizing"}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	hint, ok := ev.(PhaseHint)
	if !ok {
		t.Fatalf("event type = %T, want PhaseHint", ev)
	}
	if hint.Name != "summarizing" {
		t.Errorf("Name = %q", hint.Name)
	}
}

func TestParseFrame_Progress(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"progress","data":{"phase":"summarizing","done":2,"total":5}}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	p, ok := ev.(Progress)
	if !ok {
		t.Fatalf("event type = %T, want Progress", ev)
	}
	if p.Phase != "summarizing" || p.Done != 2 || p.Total != 5 {
		t.Errorf("Progress = %+v", p)
	}
}

func TestParseFrame_ServerError(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"error","data":"generation backend unavailable"}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	se, ok := ev.(ServerError)
	if !ok {
		t.Fatalf("event type = %T, want ServerError", ev)
	}
	if se.Message != "generation backend unavailable" {
		t.Errorf("Message = %q", se.Message)
	}
}

func TestParseFrame_Conflict(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"model_limit_conflict","data":{"message":"limit reached"}}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	c, ok := ev.(Conflict)
	if !ok {
		t.Fatalf("event type = %T, want Conflict", ev)
	}
	if c.Message != "limit reached" {
		t.Errorf("Message = %q", c.Message)
	}
}

func TestParseFrame_DoneSuccess(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"done","data":{"conversation":{"id":42}}}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	done, ok := ev.(Done)
	if !ok {
		t.Fatalf("event type = %T, want Done", ev)
	}
	if !done.Success() || done.ConversationID != 42 {
		t.Errorf("Done = %+v", done)
	}
}

func TestParseFrame_DoneFailure(t *testing.T) {
	ev, err := ParseFrame([]byte(`{"type":"done","data":{"error":"ran out of budget"}}`))
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	done, ok := ev.(Done)
	if !ok {
		t.Fatalf("event type = %T, want Done", ev)
	}
	if done.Success() || done.ErrMessage != "ran out of budget" {
		t.Errorf("Done = %+v", done)
	}
}

func TestParseFrame_Warnings(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"invalid json", `{"type":`},
		{"unknown tag", `{"type":"telemetry","data":{}}`},
		{"missing tag", `{"data":"x"}`},
		{"delta payload not a string", `{"type":"markdown_delta","data":7}`},
		{"progress payload not an object", `{"type":"progress","data":"fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseFrame([]byte(tt.frame))
			if ev != nil {
				t.Errorf("event = %v, want nil", ev)
			}
			if !IsParseWarning(err) {
				t.Errorf("err = %v, want *ParseWarning", err)
			}
			if IsProtocolError(err) {
				t.Errorf("err %v misclassified as protocol error", err)
			}
		})
	}
}

func TestParseFrame_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"done with empty object", `{"type":"done","data":{}}`},
		{"done with empty error string", `{"type":"done","data":{"error":""}}`},
		{"done with string payload", `{"type":"done","data":"finished"}`},
		{"done with null payload", `{"type":"done","data":null}`},
		{"done with missing payload", `{"type":"done"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseFrame([]byte(tt.frame))
			if ev != nil {
				t.Errorf("event = %v, want nil", ev)
			}
			if !IsProtocolError(err) {
				t.Errorf("err = %v, want *ProtocolError", err)
			}
		})
	}
}

func TestParseFrame_ExcerptTruncation(t *testing.T) {
	long := `{"type":"nope","data":"` + strings.Repeat("x", 500) + `"}`
	_, err := ParseFrame([]byte(long))
	w, ok := err.(*ParseWarning)
	if !ok {
		t.Fatalf("err = %T, want *ParseWarning", err)
	}
	if len(w.Frame) > excerptLen+3 {
		t.Errorf("excerpt length = %d, want <= %d", len(w.Frame), excerptLen+3)
	}
}
