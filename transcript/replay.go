package transcript

import (
	"io"
	"time"
)

// ReplayOptions controls stream reconstruction.
type ReplayOptions struct {
	// Pace reproduces the original arrival timing instead of emitting
	// the whole stream at once.
	Pace bool
	// Speed scales paced timing; 2 replays twice as fast. Values <= 0
	// mean real time.
	Speed float64
}

// NewReplayStream reconstructs the original byte stream from a transcript.
// Each record's line is emitted followed by a newline, so the result can
// be consumed by the same pipeline that produced the recording. Closing
// the stream stops replay; a corrupt record surfaces as a read error.
func NewReplayStream(tr *Reader, opts ReplayOptions) io.ReadCloser {
	speed := opts.Speed
	if speed <= 0 {
		speed = 1
	}

	pr, pw := io.Pipe()
	go func() {
		var elapsed int64
		for {
			rec, err := tr.Next()
			if err != nil {
				if err == io.EOF {
					pw.Close()
				} else {
					pw.CloseWithError(err)
				}
				return
			}

			if opts.Pace && rec.ElapsedMs > elapsed {
				delay := time.Duration(float64(rec.ElapsedMs-elapsed)/speed) * time.Millisecond
				time.Sleep(delay)
			}
			elapsed = rec.ElapsedMs

			if _, err := pw.Write(append(rec.Line, '\n')); err != nil {
				// Reader side closed; stop replaying.
				return
			}
		}
	}()
	return pr
}
