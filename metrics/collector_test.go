package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.IncRunStarted()
	c.IncRunSucceeded()
	c.IncRunFailed()
	c.IncRunCanceled()
	c.AddBytesRead(1024)
	c.AddFramesDecoded(3)
	c.IncEventApplied()
	c.IncEventApplied()
	c.IncParseWarning()
	c.IncProtocolError()
	c.AddBytesDiscarded(7)

	snap := c.Snapshot()
	if snap.RunsStarted != 1 || snap.RunsSucceeded != 1 || snap.RunsFailed != 1 || snap.RunsCanceled != 1 {
		t.Errorf("run counters = %+v", snap)
	}
	if snap.BytesRead != 1024 {
		t.Errorf("BytesRead = %d, want 1024", snap.BytesRead)
	}
	if snap.FramesDecoded != 3 {
		t.Errorf("FramesDecoded = %d, want 3", snap.FramesDecoded)
	}
	if snap.EventsApplied != 2 {
		t.Errorf("EventsApplied = %d, want 2", snap.EventsApplied)
	}
	if snap.ParseWarnings != 1 || snap.ProtocolErrors != 1 {
		t.Errorf("warning counters = %+v", snap)
	}
	if snap.BytesDiscarded != 7 {
		t.Errorf("BytesDiscarded = %d, want 7", snap.BytesDiscarded)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	// Must not panic.
	c.IncRunStarted()
	c.IncRunSucceeded()
	c.IncRunFailed()
	c.IncRunCanceled()
	c.AddBytesRead(1)
	c.AddFramesDecoded(1)
	c.IncEventApplied()
	c.IncParseWarning()
	c.IncProtocolError()
	c.AddBytesDiscarded(1)

	if snap := c.Snapshot(); snap != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero", snap)
	}
}

func TestCollector_ConcurrentIncrements(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncEventApplied()
			c.AddBytesRead(2)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.EventsApplied != 50 {
		t.Errorf("EventsApplied = %d, want 50", snap.EventsApplied)
	}
	if snap.BytesRead != 100 {
		t.Errorf("BytesRead = %d, want 100", snap.BytesRead)
	}
}
