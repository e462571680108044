package cpu

import "errors"

var (
	ErrNoSceneData      = errors.New("cpu tracer: no scene data uploaded")
	ErrInvalidBuffers   = errors.New("cpu tracer: accumulation/frame buffer sizes do not match the frame dimensions")
	ErrAlreadySetup     = errors.New("cpu tracer: tracer already set up")
)
