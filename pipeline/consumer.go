package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tessellary/ideastream/log"
	"github.com/tessellary/ideastream/metrics"
	"github.com/tessellary/ideastream/wire"
)

// readChunkSize is the transport read buffer size. Chunk boundaries are
// arbitrary; the line decoder owns reassembly.
const readChunkSize = 4096

// ConsumeErrorKind classifies consumer failures for outcome determination.
type ConsumeErrorKind int

const (
	// ConsumeErrorStream indicates a transport read failure.
	ConsumeErrorStream ConsumeErrorKind = iota
	// ConsumeErrorProtocol indicates a malformed terminal event.
	ConsumeErrorProtocol
	// ConsumeErrorCanceled indicates context cancellation.
	ConsumeErrorCanceled
)

// ConsumeError wraps a consumer failure with its classification.
type ConsumeError struct {
	Kind ConsumeErrorKind
	Err  error
}

func (e *ConsumeError) Error() string { return e.Err.Error() }

func (e *ConsumeError) Unwrap() error { return e.Err }

// IsStreamError returns true if err is a transport read failure.
func IsStreamError(err error) bool {
	var cerr *ConsumeError
	return errors.As(err, &cerr) && cerr.Kind == ConsumeErrorStream
}

// IsProtocolError returns true if err is a fatal protocol violation.
func IsProtocolError(err error) bool {
	var cerr *ConsumeError
	return errors.As(err, &cerr) && cerr.Kind == ConsumeErrorProtocol
}

// IsCanceledError returns true if err is due to cancellation.
func IsCanceledError(err error) bool {
	var cerr *ConsumeError
	return errors.As(err, &cerr) && cerr.Kind == ConsumeErrorCanceled
}

// Consumer drives the line decoder and event parser against one byte
// stream and applies every resulting event, in arrival order, through a
// single apply function. One Consumer serves exactly one run; the carry-
// over buffer is never shared.
type Consumer struct {
	decoder   *wire.LineDecoder
	logger    *log.Logger
	collector *metrics.Collector

	// apply feeds one event to the reducer and reports whether a terminal
	// phase was reached.
	apply func(wire.Event) bool
	// observe, when set, sees every complete frame before parsing.
	// Used for transcript recording.
	observe func([]byte)
}

// NewConsumer creates a consumer for a single run.
func NewConsumer(logger *log.Logger, collector *metrics.Collector, apply func(wire.Event) bool, observe func([]byte)) *Consumer {
	return &Consumer{
		decoder:   wire.NewLineDecoder(),
		logger:    logger,
		collector: collector,
		apply:     apply,
		observe:   observe,
	}
}

// Run consumes the stream until a terminal phase, end-of-stream, or
// cancellation.
//
// Returns:
//   - nil: a terminal phase was reached, or the stream ended cleanly.
//     The caller distinguishes the two by inspecting its own state; a
//     clean end without a terminal phase is an implicit failure.
//   - *ConsumeError with Kind=ConsumeErrorProtocol: malformed terminal event
//   - *ConsumeError with Kind=ConsumeErrorCanceled: context canceled
//   - *ConsumeError with Kind=ConsumeErrorStream: transport read failure
//
// On a terminal phase the loop exits immediately: frames already decoded
// but not yet applied are dropped and no further bytes are read.
func (c *Consumer) Run(ctx context.Context, stream io.Reader) error {
	buf := make([]byte, readChunkSize)

	for {
		select {
		case <-ctx.Done():
			return &ConsumeError{Kind: ConsumeErrorCanceled, Err: ctx.Err()}
		default:
		}

		n, readErr := stream.Read(buf)
		if n > 0 {
			c.collector.AddBytesRead(int64(n))

			frames := c.decoder.Decode(buf[:n])
			c.collector.AddFramesDecoded(int64(len(frames)))

			if c.decoder.Buffered() > wire.MaxLineSize {
				return &ConsumeError{
					Kind: ConsumeErrorStream,
					Err:  fmt.Errorf("unterminated line exceeds %d bytes", wire.MaxLineSize),
				}
			}

			for _, frame := range frames {
				if c.observe != nil {
					c.observe(frame)
				}

				ev, err := wire.ParseFrame(frame)
				if err != nil {
					if wire.IsParseWarning(err) {
						// Malformed non-terminal line: skip and continue.
						c.collector.IncParseWarning()
						c.logger.Warn("skipping malformed frame", map[string]any{
							"error": err.Error(),
						})
						continue
					}

					c.collector.IncProtocolError()
					c.logger.Error("protocol violation", map[string]any{
						"error": err.Error(),
					})
					return &ConsumeError{
						Kind: ConsumeErrorProtocol,
						Err:  fmt.Errorf("protocol violation: %w", err),
					}
				}

				c.collector.IncEventApplied()
				if c.apply(ev) {
					return nil
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if discarded := c.decoder.Finish(); discarded > 0 {
					c.collector.AddBytesDiscarded(int64(discarded))
					c.logger.Warn("discarding unterminated trailing line", map[string]any{
						"bytes": discarded,
					})
				}
				return nil
			}

			// Cancellation surfaces as a read error on the aborted body.
			if ctx.Err() != nil {
				return &ConsumeError{Kind: ConsumeErrorCanceled, Err: ctx.Err()}
			}

			return &ConsumeError{
				Kind: ConsumeErrorStream,
				Err:  fmt.Errorf("stream read failed: %w", readErr),
			}
		}
	}
}
