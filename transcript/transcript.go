// Package transcript records and replays the raw frames of a generation
// run.
//
// A transcript is a header followed by length-prefixed msgpack records,
// one per wire frame, each stamped with its arrival offset. Recording
// taps the pipeline's frame observer, so malformed frames are captured
// exactly as they arrived; replay reconstructs the original byte stream
// and can feed it back through the pipeline.
package transcript

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// FormatVersion is the transcript format version written into the header.
const FormatVersion = 1

const (
	// MaxRecordSize bounds a single record (2 MiB), comfortably above the
	// wire's maximum line size.
	MaxRecordSize = 2 * 1024 * 1024
	// lengthPrefixSize is the size of the big-endian length prefix.
	lengthPrefixSize = 4
)

// RecordErrorKind classifies transcript decoding errors.
type RecordErrorKind int

const (
	// RecordErrorPartial indicates a truncated record.
	RecordErrorPartial RecordErrorKind = iota
	// RecordErrorTooLarge indicates a record exceeding MaxRecordSize.
	RecordErrorTooLarge
	// RecordErrorDecode indicates a msgpack decoding error.
	RecordErrorDecode
)

// RecordError represents a transcript decoding error.
type RecordError struct {
	Kind RecordErrorKind
	Msg  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RecordError) Unwrap() error { return e.Err }

// Header identifies the run a transcript belongs to.
type Header struct {
	Version   int       `msgpack:"version"`
	RunID     string    `msgpack:"run_id"`
	StartedAt time.Time `msgpack:"started_at"`
	Title     string    `msgpack:"title"`
	Model     string    `msgpack:"model"`
	Provider  string    `msgpack:"provider"`
}

// Record is one wire frame with its position in the run.
type Record struct {
	Seq int64 `msgpack:"seq"`
	// ElapsedMs is the arrival offset from the start of the run.
	ElapsedMs int64 `msgpack:"elapsed_ms"`
	// Line is the raw frame exactly as decoded from the wire, without
	// the terminating newline.
	Line []byte `msgpack:"line"`
}

// Writer appends records to a transcript. Safe for use as the pipeline's
// frame observer: encoding or write failures are sticky and swallowed so
// a broken transcript never affects the run itself.
type Writer struct {
	mu    sync.Mutex
	w     io.Writer
	start time.Time
	seq   int64
	err   error
}

// NewWriter writes the header and returns a transcript writer.
func NewWriter(w io.Writer, hdr Header) (*Writer, error) {
	hdr.Version = FormatVersion
	if hdr.StartedAt.IsZero() {
		hdr.StartedAt = time.Now()
	}

	tw := &Writer{w: w, start: hdr.StartedAt}
	if err := tw.writeFrame(hdr); err != nil {
		return nil, fmt.Errorf("writing transcript header: %w", err)
	}
	return tw, nil
}

// Observe records one wire frame. Matches the pipeline's frame observer
// signature.
func (w *Writer) Observe(frame []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}

	w.seq++
	rec := Record{
		Seq:       w.seq,
		ElapsedMs: time.Since(w.start).Milliseconds(),
		Line:      frame,
	}
	if err := w.writeFrame(rec); err != nil {
		w.err = err
	}
}

// Err returns the first write failure, if any. Checked after the run so
// the caller can warn about an incomplete transcript.
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Writer) writeFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return &RecordError{Kind: RecordErrorDecode, Msg: "failed to encode record", Err: err}
	}
	if len(payload) > MaxRecordSize {
		return &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", len(payload), MaxRecordSize),
		}
	}

	var lengthBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(payload)))
	if _, err := w.w.Write(lengthBuf[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	return nil
}

// Reader decodes a transcript sequentially.
type Reader struct {
	r      io.Reader
	header Header
}

// NewReader reads and validates the header.
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{r: r}

	payload, err := tr.readFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &RecordError{Kind: RecordErrorPartial, Msg: "transcript is empty"}
		}
		return nil, err
	}
	if err := msgpack.Unmarshal(payload, &tr.header); err != nil {
		return nil, &RecordError{Kind: RecordErrorDecode, Msg: "failed to decode header", Err: err}
	}
	if tr.header.Version != FormatVersion {
		return nil, &RecordError{
			Kind: RecordErrorDecode,
			Msg:  fmt.Sprintf("unsupported transcript version %d", tr.header.Version),
		}
	}
	return tr, nil
}

// Header returns the transcript header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF when the transcript ends
// cleanly.
func (r *Reader) Next() (*Record, error) {
	payload, err := r.readFrame()
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, &RecordError{Kind: RecordErrorDecode, Msg: "failed to decode record", Err: err}
	}
	return &rec, nil
}

func (r *Reader) readFrame() ([]byte, error) {
	var lengthBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r.r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &RecordError{Kind: RecordErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(lengthBuf[:])
	if size > MaxRecordSize {
		return nil, &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", size, MaxRecordSize),
		}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, &RecordError{Kind: RecordErrorPartial, Msg: "failed to read record payload", Err: err}
	}
	return payload, nil
}
