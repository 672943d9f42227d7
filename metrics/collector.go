// Package metrics provides per-pipeline metrics collection.
//
// The Collector accumulates counters across the runs of one pipeline
// instance. It is a leaf package with no internal dependencies; all
// increment methods are nil-receiver safe so instrumentation can be
// omitted entirely.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all collected counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Run lifecycle
	RunsStarted   int64
	RunsSucceeded int64
	RunsFailed    int64
	RunsCanceled  int64

	// Stream consumption
	BytesRead      int64
	FramesDecoded  int64
	EventsApplied  int64
	ParseWarnings  int64
	ProtocolErrors int64
	BytesDiscarded int64
}

// Collector accumulates metrics for one pipeline instance.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	runsStarted   int64
	runsSucceeded int64
	runsFailed    int64
	runsCanceled  int64

	bytesRead      int64
	framesDecoded  int64
	eventsApplied  int64
	parseWarnings  int64
	protocolErrors int64
	bytesDiscarded int64
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{}
}

// IncRunStarted records a run start.
func (c *Collector) IncRunStarted() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsStarted++
	c.mu.Unlock()
}

// IncRunSucceeded records a run reaching the succeeded phase.
func (c *Collector) IncRunSucceeded() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsSucceeded++
	c.mu.Unlock()
}

// IncRunFailed records a run reaching the failed phase for any reason
// other than cancellation.
func (c *Collector) IncRunFailed() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsFailed++
	c.mu.Unlock()
}

// IncRunCanceled records a caller-initiated abort.
func (c *Collector) IncRunCanceled() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.runsCanceled++
	c.mu.Unlock()
}

// AddBytesRead records bytes received from the transport.
func (c *Collector) AddBytesRead(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesRead += n
	c.mu.Unlock()
}

// AddFramesDecoded records complete frames produced by the line decoder.
func (c *Collector) AddFramesDecoded(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.framesDecoded += n
	c.mu.Unlock()
}

// IncEventApplied records an event applied to the reducer.
func (c *Collector) IncEventApplied() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.eventsApplied++
	c.mu.Unlock()
}

// IncParseWarning records a skipped malformed frame.
func (c *Collector) IncParseWarning() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.parseWarnings++
	c.mu.Unlock()
}

// IncProtocolError records a fatal protocol violation.
func (c *Collector) IncProtocolError() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.protocolErrors++
	c.mu.Unlock()
}

// AddBytesDiscarded records trailing bytes dropped at end-of-stream.
func (c *Collector) AddBytesDiscarded(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.bytesDiscarded += n
	c.mu.Unlock()
}

// Snapshot returns an immutable copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		RunsStarted:    c.runsStarted,
		RunsSucceeded:  c.runsSucceeded,
		RunsFailed:     c.runsFailed,
		RunsCanceled:   c.runsCanceled,
		BytesRead:      c.bytesRead,
		FramesDecoded:  c.framesDecoded,
		EventsApplied:  c.eventsApplied,
		ParseWarnings:  c.parseWarnings,
		ProtocolErrors: c.protocolErrors,
		BytesDiscarded: c.bytesDiscarded,
	}
}
