package wire

// Tag is the event type discriminator carried by every frame.
type Tag string

// Recognized event tags.
const (
	TagMarkdownDelta Tag = "markdown_delta"
	TagState         Tag = "state"
	TagProgress      Tag = "progress"
	TagError         Tag = "error"
	TagConflict      Tag = "model_limit_conflict"
	TagDone          Tag = "done"
)

// Event is a sealed interface over the parsed stream event variants.
// The unexported marker method keeps implementations inside this package;
// the reducer matches on the concrete types.
type Event interface {
	Tag() Tag
	event()
}

// MarkdownDelta carries a text fragment to append to the accumulated
// output.
type MarkdownDelta struct {
	Text string
}

func (MarkdownDelta) Tag() Tag { return TagMarkdownDelta }
func (MarkdownDelta) event()   {}

// PhaseHint announces a server-side phase change by name.
type PhaseHint struct {
	Name string
}

func (PhaseHint) Tag() Tag { return TagState }
func (PhaseHint) event()   {}

// Progress reports step counts within a named server phase.
type Progress struct {
	Phase string
	Done  int
	Total int
}

func (Progress) Tag() Tag { return TagProgress }
func (Progress) event()   {}

// ServerError is an explicit fatal failure announced by the server.
type ServerError struct {
	Message string
}

func (ServerError) Tag() Tag { return TagError }
func (ServerError) event()   {}

// Conflict is a fatal business-rule rejection (model usage limit reached).
// Unlike ServerError it is an expected outcome class and is never
// forwarded to diagnostics.
type Conflict struct {
	Message string
}

func (Conflict) Tag() Tag { return TagConflict }
func (Conflict) event()   {}

// Done is the terminal event. Exactly one of ConversationID or ErrMessage
// is populated; the parser rejects frames carrying neither.
type Done struct {
	ConversationID int64
	ErrMessage     string
}

func (Done) Tag() Tag { return TagDone }
func (Done) event()   {}

// Success reports whether the done event carries a usable result.
func (d Done) Success() bool { return d.ErrMessage == "" }

// Interface compliance checks.
var (
	_ Event = MarkdownDelta{}
	_ Event = PhaseHint{}
	_ Event = Progress{}
	_ Event = ServerError{}
	_ Event = Conflict{}
	_ Event = Done{}
)
