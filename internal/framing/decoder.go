package framing

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/wagiedev/claude-control-go/internal/errors"
)

// readChunkSize is the bufio buffer size; lines longer than this are
// assembled from several ReadLine fragments.
const readChunkSize = 64 * 1024

// maxRawDataInError caps how much discarded text is kept on a decode error.
const maxRawDataInError = 256

// Decoder reads frames from a byte stream.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	log     *slog.Logger
	r       *bufio.Reader
	policy  Policy
	maxSize int
	buf     []byte
	readErr error
}

// NewDecoder creates a decoder over r. A non-positive maxSize selects
// DefaultMaxBufferSize.
func NewDecoder(log *slog.Logger, r io.Reader, policy Policy, maxSize int) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxBufferSize
	}

	return &Decoder{
		log:     log.With("component", "framing"),
		r:       bufio.NewReaderSize(r, readChunkSize),
		policy:  policy,
		maxSize: maxSize,
	}
}

// Next returns the next frame.
//
// A decode failure is returned as a Frame whose Err is a
// *errors.JSONDecodeError, with a nil error. The returned error is io.EOF when
// the stream ended cleanly and any other value when reading failed; both end
// the sequence. Text left in the accumulation buffer at end of stream is
// reported as a final decode error frame before io.EOF.
func (d *Decoder) Next() (Frame, error) {
	for {
		line, tooLong, err := d.readLine()
		if err != nil {
			if len(d.buf) > 0 && stderrors.Is(err, io.EOF) {
				raw := d.buf
				d.buf = nil

				return decodeErrorFrame(raw, fmt.Errorf("unexpected end of stream: %w", io.ErrUnexpectedEOF)), nil
			}

			return Frame{}, err
		}

		if tooLong {
			d.log.Warn("Discarding oversized line", "max_buffer_size", d.maxSize)

			raw := append(d.buf, line...)
			d.buf = nil

			return decodeErrorFrame(raw, errors.ErrFrameTooLarge), nil
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if d.policy == FramingStrict {
			data, err := decodeObject(line)
			if err != nil {
				d.log.Debug("Failed to decode line", "error", err)

				return decodeErrorFrame(line, err), nil
			}

			return Frame{Data: data}, nil
		}

		if len(d.buf) > 0 {
			d.buf = append(d.buf, '\n')
		}

		d.buf = append(d.buf, line...)

		if len(d.buf) > d.maxSize {
			d.log.Warn("Accumulated frame exceeds buffer limit", "size", len(d.buf), "max_buffer_size", d.maxSize)

			raw := d.buf
			d.buf = nil

			return decodeErrorFrame(raw, errors.ErrFrameTooLarge), nil
		}

		data, err := decodeObject(d.buf)
		if err != nil {
			d.log.Debug("Frame incomplete, accumulating", "buffered", len(d.buf))

			continue
		}

		d.buf = d.buf[:0]

		return Frame{Data: data}, nil
	}
}

// readLine returns one physical line without its terminator. When the line
// exceeds the size limit the remainder is consumed and discarded, and tooLong
// is set; the returned bytes are then only a prefix.
func (d *Decoder) readLine() ([]byte, bool, error) {
	if d.readErr != nil {
		return nil, false, d.readErr
	}

	var line []byte

	tooLong := false

	for {
		fragment, isPrefix, err := d.r.ReadLine()
		if err != nil {
			if len(line) > 0 || tooLong {
				// Final unterminated line; surface it before the error.
				d.readErr = err

				return line, tooLong, nil
			}

			return nil, false, err
		}

		if !tooLong {
			if len(line)+len(fragment) > d.maxSize {
				tooLong = true
				line = append(line, fragment[:min(len(fragment), maxRawDataInError)]...)
			} else {
				line = append(line, fragment...)
			}
		}

		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// decodeObject decodes data as a single JSON object.
func decodeObject(data []byte) (map[string]any, error) {
	var obj map[string]any

	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}

	if obj == nil {
		return nil, fmt.Errorf("expected JSON object, got %s", truncate(data))
	}

	return obj, nil
}

func decodeErrorFrame(raw []byte, err error) Frame {
	return Frame{Err: &errors.JSONDecodeError{RawData: truncate(raw), Err: err}}
}

func truncate(raw []byte) string {
	if len(raw) > maxRawDataInError {
		return string(raw[:maxRawDataInError]) + "..."
	}

	return string(raw)
}
