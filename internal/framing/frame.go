package framing

// Policy selects how physical lines are assembled into frames.
type Policy int

const (
	// FramingStrict decodes each non-empty line as exactly one JSON object.
	FramingStrict Policy = iota
	// FramingAccumulate joins lines until the buffered text decodes.
	FramingAccumulate
)

// DefaultMaxBufferSize bounds a single logical frame.
const DefaultMaxBufferSize = 1024 * 1024 // 1MB

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case FramingStrict:
		return "strict"
	case FramingAccumulate:
		return "accumulate"
	default:
		return "unknown"
	}
}

// Frame is one item of a decoded frame sequence: either a JSON object or an
// error. A *errors.JSONDecodeError in Err is recoverable and the sequence
// continues; any other error is the final item.
type Frame struct {
	Data map[string]any
	Err  error
}

// Type returns the frame's "type" discriminator, or "" when absent.
func (f Frame) Type() string {
	if f.Data == nil {
		return ""
	}

	t, _ := f.Data["type"].(string)

	return t
}
