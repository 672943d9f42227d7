package types

import (
	"fmt"
	"strings"
)

// Request carries the four inputs of a generation run. JSON tags match the
// wire body of the generation endpoint.
type Request struct {
	Title      string `json:"idea_title"`
	Hypothesis string `json:"idea_hypothesis"`
	Model      string `json:"llm_model"`
	Provider   string `json:"llm_provider"`
}

// ValidationError reports a caller mistake detected before any network
// activity. It is never forwarded to diagnostics.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// Normalize returns a copy of the request with surrounding whitespace
// stripped from every field. The normalized request is what reaches the
// wire.
func (r Request) Normalize() Request {
	return Request{
		Title:      strings.TrimSpace(r.Title),
		Hypothesis: strings.TrimSpace(r.Hypothesis),
		Model:      strings.TrimSpace(r.Model),
		Provider:   strings.TrimSpace(r.Provider),
	}
}

// Validate checks the request preconditions: title and hypothesis must be
// non-empty after trimming, model and provider must both be present.
// Returns a *ValidationError on the first violated field.
func (r Request) Validate() error {
	n := r.Normalize()
	switch {
	case n.Title == "":
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	case n.Hypothesis == "":
		return &ValidationError{Field: "hypothesis", Reason: "must not be empty"}
	case n.Model == "":
		return &ValidationError{Field: "model", Reason: "must be set"}
	case n.Provider == "":
		return &ValidationError{Field: "provider", Reason: "must be set"}
	}
	return nil
}
