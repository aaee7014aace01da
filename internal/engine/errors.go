package engine

import (
	"errors"
	"fmt"
)

var (
	ErrCaptureActive    = errors.New("capture in progress")
	ErrNothingToCapture = errors.New("timeline is empty")
	ErrAssetsNotReady   = errors.New("assets still decoding")
)

// CaptureError is a capture aborted by the sink, the encoder or
// cancellation. Live preview state has already been restored when it is
// returned.
type CaptureError struct {
	Frame int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture aborted at frame %d: %v", e.Frame, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
