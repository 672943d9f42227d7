package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// excerptLen bounds how much of a bad frame is echoed into error messages.
const excerptLen = 120

// ParseWarning reports a malformed non-terminal frame: unparseable JSON,
// a missing or unrecognized type tag, or a payload of the wrong shape.
// It is non-fatal; the consumer skips the frame and continues.
type ParseWarning struct {
	Reason string
	Frame  string
	Err    error
}

func (e *ParseWarning) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("skipping frame: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("skipping frame: %s", e.Reason)
}

func (e *ParseWarning) Unwrap() error { return e.Err }

// ProtocolError reports a malformed terminal event: a done frame whose
// payload is not an object or carries neither a conversation identifier
// nor an error message. It is fatal because the stream has announced
// completion without a usable outcome.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed terminal event: %s", e.Reason)
}

// IsParseWarning returns true if err is a non-fatal frame parse warning.
func IsParseWarning(err error) bool {
	var w *ParseWarning
	return errors.As(err, &w)
}

// IsProtocolError returns true if err is a fatal protocol violation.
func IsProtocolError(err error) bool {
	var p *ProtocolError
	return errors.As(err, &p)
}

// envelope is the top-level shape of every frame.
type envelope struct {
	Type Tag             `json:"type"`
	Data json.RawMessage `json:"data"`
}

// donePayload is the expected object shape of a done frame.
type donePayload struct {
	Conversation *struct {
		ID int64 `json:"id"`
	} `json:"conversation"`
	Err *string `json:"error"`
}

// ParseFrame classifies one complete frame into an Event.
//
// Errors are either *ParseWarning (skip the frame, keep consuming) or
// *ProtocolError (terminate the run). ParseFrame itself never panics on
// malformed input.
func ParseFrame(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, &ParseWarning{Reason: "invalid JSON", Frame: excerpt(frame), Err: err}
	}

	switch env.Type {
	case TagMarkdownDelta:
		var text string
		if err := json.Unmarshal(env.Data, &text); err != nil {
			return nil, &ParseWarning{Reason: "markdown_delta payload is not a string", Frame: excerpt(frame), Err: err}
		}
		return MarkdownDelta{Text: text}, nil

	case TagState:
		var name string
		if err := json.Unmarshal(env.Data, &name); err != nil {
			return nil, &ParseWarning{Reason: "state payload is not a string", Frame: excerpt(frame), Err: err}
		}
		return PhaseHint{Name: name}, nil

	case TagProgress:
		var p struct {
			Phase string `json:"phase"`
			Done  int    `json:"done"`
			Total int    `json:"total"`
		}
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, &ParseWarning{Reason: "progress payload is not an object", Frame: excerpt(frame), Err: err}
		}
		return Progress{Phase: p.Phase, Done: p.Done, Total: p.Total}, nil

	case TagError:
		var msg string
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			return nil, &ParseWarning{Reason: "error payload is not a string", Frame: excerpt(frame), Err: err}
		}
		return ServerError{Message: msg}, nil

	case TagConflict:
		var c struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &c); err != nil {
			return nil, &ParseWarning{Reason: "model_limit_conflict payload is not an object", Frame: excerpt(frame), Err: err}
		}
		return Conflict{Message: c.Message}, nil

	case TagDone:
		return parseDone(env.Data)

	default:
		return nil, &ParseWarning{Reason: fmt.Sprintf("unrecognized type %q", string(env.Type)), Frame: excerpt(frame)}
	}
}

// parseDone validates the terminal payload. Any shape other than an object
// holding a conversation identifier or an error message is a protocol
// violation.
func parseDone(data json.RawMessage) (Event, error) {
	var p donePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &ProtocolError{Reason: "done payload is not an object"}
	}

	switch {
	case p.Conversation != nil:
		return Done{ConversationID: p.Conversation.ID}, nil
	case p.Err != nil && *p.Err != "":
		return Done{ErrMessage: *p.Err}, nil
	default:
		return nil, &ProtocolError{Reason: "done payload carries neither a conversation nor an error"}
	}
}

func excerpt(frame []byte) string {
	if len(frame) > excerptLen {
		return string(frame[:excerptLen]) + "..."
	}
	return string(frame)
}
