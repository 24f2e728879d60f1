package framing

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/wagiedev/claude-control-go/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// chunkReader delivers data in fixed chunks to simulate partial reads.
type chunkReader struct {
	chunks [][]byte
	index  int
}

func newChunkReader(chunks ...string) *chunkReader {
	byteChunks := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		byteChunks[i] = []byte(chunk)
	}

	return &chunkReader{chunks: byteChunks}
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for r.index < len(r.chunks) && len(r.chunks[r.index]) == 0 {
		r.index++
	}

	if r.index >= len(r.chunks) {
		return 0, io.EOF
	}

	n := copy(p, r.chunks[r.index])
	r.chunks[r.index] = r.chunks[r.index][n:]

	return n, nil
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}

	n := copy(p, r.data)
	r.data = r.data[n:]

	return n, nil
}

// collect drains a decoder, returning every frame and the terminal error.
func collect(t require.TestingT, d *Decoder) ([]Frame, error) {
	var frames []Frame

	for range 10000 {
		frame, err := d.Next()
		if err != nil {
			return frames, err
		}

		frames = append(frames, frame)
	}

	t.Errorf("decoder did not terminate")
	t.FailNow()

	return nil, nil
}

func TestDecoder_Strict_OneObjectPerLine(t *testing.T) {
	input := `{"type":"assistant","n":1}` + "\n" + `{"type":"result","n":2}` + "\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 2)
	require.Equal(t, "assistant", frames[0].Type())
	require.Equal(t, "result", frames[1].Type())
	require.InDelta(t, 2.0, frames[1].Data["n"], 0)
}

func TestDecoder_Strict_BadLineIsIsolated(t *testing.T) {
	input := "{\"type\":\"a\"}\nnot json\n{\"type\":\"b\"}\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 3)
	require.Equal(t, "a", frames[0].Type())
	require.True(t, errors.IsDecodeError(frames[1].Err))
	require.Equal(t, "b", frames[2].Type())
}

func TestDecoder_SkipsBlankAndWhitespaceLines(t *testing.T) {
	input := "\n\n   \n{\"type\":\"a\"}\r\n\t\n  {\"type\":\"b\"}  \n\n"

	for _, policy := range []Policy{FramingStrict, FramingAccumulate} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewDecoder(discardLogger(), strings.NewReader(input), policy, 0)
			frames, err := collect(t, d)

			require.ErrorIs(t, err, io.EOF)
			require.Len(t, frames, 2)
			require.Equal(t, "a", frames[0].Type())
			require.Equal(t, "b", frames[1].Type())
		})
	}
}

func TestDecoder_NonObjectValuesAreDecodeErrors(t *testing.T) {
	input := "[1,2]\n\"text\"\nnull\n42\n{\"type\":\"ok\"}\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 5)

	for _, frame := range frames[:4] {
		require.True(t, errors.IsDecodeError(frame.Err))
		require.Nil(t, frame.Data)
	}

	require.Equal(t, "ok", frames[4].Type())
}

func TestDecoder_FinalLineWithoutNewline(t *testing.T) {
	d := NewDecoder(discardLogger(), strings.NewReader(`{"type":"result"}`), FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)
	require.Equal(t, "result", frames[0].Type())
}

func TestDecoder_Accumulate_MultiLineObject(t *testing.T) {
	input := "{\n  \"type\": \"assistant\",\n  \"text\": \"hi\"\n}\n{\"type\":\"result\"}\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingAccumulate, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 2)
	require.Equal(t, "assistant", frames[0].Type())
	require.Equal(t, "hi", frames[0].Data["text"])
	require.Equal(t, "result", frames[1].Type())
}

func TestDecoder_Accumulate_OverflowYieldsSingleErrorThenResumes(t *testing.T) {
	// Two malformed 6-byte lines under a 10-byte limit.
	input := "abcdef\nghijkl\n{\"a\":1}\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingAccumulate, 10)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 2)
	require.ErrorIs(t, frames[0].Err, errors.ErrFrameTooLarge)
	require.True(t, errors.IsDecodeError(frames[0].Err))
	require.Nil(t, frames[1].Err)
	require.InDelta(t, 1.0, frames[1].Data["a"], 0)
}

func TestDecoder_Accumulate_TrailingGarbageReported(t *testing.T) {
	input := "{\"type\":\"a\"}\n{\"type\":\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingAccumulate, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 2)
	require.Equal(t, "a", frames[0].Type())
	require.ErrorIs(t, frames[1].Err, io.ErrUnexpectedEOF)
}

func TestDecoder_OversizedPhysicalLineSkipped(t *testing.T) {
	huge := `{"type":"x","pad":"` + strings.Repeat("z", 200*1024) + `"}`
	input := huge + "\n" + `{"type":"after"}` + "\n"

	for _, policy := range []Policy{FramingStrict, FramingAccumulate} {
		t.Run(policy.String(), func(t *testing.T) {
			d := NewDecoder(discardLogger(), strings.NewReader(input), policy, 100*1024)
			frames, err := collect(t, d)

			require.ErrorIs(t, err, io.EOF)
			require.Len(t, frames, 2)
			require.ErrorIs(t, frames[0].Err, errors.ErrFrameTooLarge)

			decodeErr, ok := stderrors.AsType[*errors.JSONDecodeError](frames[0].Err)
			require.True(t, ok)
			require.LessOrEqual(t, len(decodeErr.RawData), maxRawDataInError+3)

			require.Equal(t, "after", frames[1].Type())
		})
	}
}

func TestDecoder_LargeLineWithinLimit(t *testing.T) {
	text := strings.Repeat("y", 300*1024)
	input := `{"type":"big","text":"` + text + `"}` + "\n"

	d := NewDecoder(discardLogger(), strings.NewReader(input), FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, frames, 1)
	require.Equal(t, text, frames[0].Data["text"])
}

func TestDecoder_ReadErrorEndsSequence(t *testing.T) {
	boom := stderrors.New("connection reset")
	r := &failingReader{data: []byte("{\"type\":\"a\"}\n"), err: boom}

	d := NewDecoder(discardLogger(), r, FramingStrict, 0)
	frames, err := collect(t, d)

	require.ErrorIs(t, err, boom)
	require.Len(t, frames, 1)
}

func TestDecoder_ChunkBoundariesDoNotChangeFrames(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "frames")

		var (
			sb       strings.Builder
			expected []map[string]any
		)

		for i := range n {
			obj := map[string]any{
				"type": rapid.SampledFrom([]string{"assistant", "user", "system", "control_request"}).Draw(t, "type"),
				"seq":  float64(i),
				"text": rapid.StringMatching(`[a-z \n{}"]{0,40}`).Draw(t, "text"),
			}
			expected = append(expected, obj)

			raw, err := json.Marshal(obj)
			require.NoError(t, err)

			sb.Write(raw)
			sb.WriteString("\n")
		}

		stream := sb.String()

		k := rapid.IntRange(0, 20).Draw(t, "cuts")
		cuts := make([]int, k)

		for i := range cuts {
			cuts[i] = rapid.IntRange(0, len(stream)).Draw(t, "cut")
		}

		policy := rapid.SampledFrom([]Policy{FramingStrict, FramingAccumulate}).Draw(t, "policy")

		d := NewDecoder(discardLogger(), newChunkReader(split(stream, cuts)...), policy, 0)
		frames, err := collect(t, d)

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, frames, n)

		for i, frame := range frames {
			require.NoError(t, frame.Err)
			require.Equal(t, expected[i], frame.Data)
		}
	})
}

func TestDecoder_Accumulate_PrettyPrintedObjects(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "frames")

		var (
			sb       strings.Builder
			expected []map[string]any
		)

		for i := range n {
			obj := map[string]any{
				"type": "assistant",
				"seq":  float64(i),
				"word": rapid.StringMatching(`[a-z]{1,10}`).Draw(t, "word"),
			}
			expected = append(expected, obj)

			raw, err := json.MarshalIndent(obj, "", "  ")
			require.NoError(t, err)

			sb.Write(raw)
			sb.WriteString("\n")
		}

		d := NewDecoder(discardLogger(), strings.NewReader(sb.String()), FramingAccumulate, 0)
		frames, err := collect(t, d)

		require.ErrorIs(t, err, io.EOF)
		require.Len(t, frames, n)

		for i, frame := range frames {
			require.Equal(t, expected[i], frame.Data)
		}
	})
}

// split cuts s at the given offsets, in any order and with duplicates.
func split(s string, cuts []int) []string {
	sorted := slices.Clone(cuts)
	slices.Sort(sorted)

	parts := make([]string, 0, len(sorted)+1)
	prev := 0

	for _, c := range sorted {
		parts = append(parts, s[prev:c])
		prev = c
	}

	return append(parts, s[prev:])
}

func TestFrame_Type(t *testing.T) {
	require.Empty(t, Frame{}.Type())
	require.Empty(t, Frame{Data: map[string]any{"type": 3}}.Type())
	require.Equal(t, "result", Frame{Data: map[string]any{"type": "result"}}.Type())
}
