// Package wire implements the generation stream wire protocol: newline-
// delimited JSON objects of the form {"type": <tag>, "data": <payload>}
// carried over a chunked HTTP response.
package wire

import "bytes"

// MaxLineSize is the maximum accepted frame size (1 MiB). A single line
// exceeding it indicates a misbehaving server, not a valid frame.
const MaxLineSize = 1 * 1024 * 1024

// LineDecoder converts arriving binary chunks into complete text lines,
// preserving the undecoded remainder across chunk boundaries.
//
// Splitting happens at the byte level on '\n'. UTF-8 guarantees that no
// byte of a multi-byte sequence equals 0x0A, so a rune split across two
// chunks stays intact inside the carry-over buffer until its line
// completes. The decoder is stateful per run; every chunk of one run must
// pass through the same instance.
type LineDecoder struct {
	carry []byte
}

// NewLineDecoder creates a decoder with an empty carry-over buffer.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Decode appends chunk to the carry-over buffer and returns all complete
// lines now available, in arrival order. Trailing '\r' is stripped so CRLF
// streams decode identically to LF streams. Empty lines are not frames and
// are dropped.
func (d *LineDecoder) Decode(chunk []byte) [][]byte {
	d.carry = append(d.carry, chunk...)

	var frames [][]byte
	for {
		idx := bytes.IndexByte(d.carry, '\n')
		if idx == -1 {
			break
		}

		line := bytes.TrimRight(d.carry[:idx], "\r")
		d.carry = d.carry[idx+1:]
		if len(line) == 0 {
			continue
		}

		frame := make([]byte, len(line))
		copy(frame, line)
		frames = append(frames, frame)
	}
	return frames
}

// Finish signals end-of-stream and returns the number of buffered bytes
// that were discarded. A trailing partial line without a terminator is not
// a valid frame; it is dropped rather than surfaced.
func (d *LineDecoder) Finish() int {
	n := len(d.carry)
	d.carry = nil
	return n
}

// Buffered returns the current carry-over size in bytes.
func (d *LineDecoder) Buffered() int {
	return len(d.carry)
}
