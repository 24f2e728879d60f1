package claudectl

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypes_ImplementSDKError(t *testing.T) {
	errs := []error{
		&CLINotFoundError{SearchedPaths: []string{"/usr/bin/claude"}},
		&ConnectionError{Err: io.ErrUnexpectedEOF},
		&TransportError{Op: "write", Err: io.ErrClosedPipe},
		&ProcessError{ExitCode: 2, Stderr: "boom"},
		&JSONDecodeError{RawData: "{", Err: io.ErrUnexpectedEOF},
		&ProtocolError{Message: "unsupported"},
		&MessageParseError{Message: "missing type"},
	}

	for _, err := range errs {
		t.Run(fmt.Sprintf("%T", err), func(t *testing.T) {
			sdkErr, ok := errors.AsType[SDKError](fmt.Errorf("wrapped: %w", err))
			assert.True(t, ok)
			assert.True(t, sdkErr.IsSDKError())
		})
	}
}

func TestIsRecoverable_Public(t *testing.T) {
	assert.True(t, IsRecoverable(&JSONDecodeError{RawData: "x", Err: io.ErrUnexpectedEOF}))
	assert.True(t, IsRecoverable(fmt.Errorf("frame: %w", &MessageParseError{Message: "missing type"})))
	assert.False(t, IsRecoverable(&TransportError{Op: "read", Err: io.ErrClosedPipe}))
	assert.False(t, IsRecoverable(&ProcessError{ExitCode: 1}))
	assert.False(t, IsRecoverable(ErrRequestTimeout))
	assert.False(t, IsRecoverable(nil))
}
