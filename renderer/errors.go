package renderer

import "errors"

var (
	ErrNoTracers        = errors.New("renderer: no tracers attached")
	ErrSceneNotDefined  = errors.New("renderer: no scene defined")
	ErrCameraNotDefined = errors.New("renderer: no camera defined")
	ErrInvalidFrameDims = errors.New("renderer: frame dimensions must be positive")
	ErrInterrupted      = errors.New("renderer: interrupted while rendering")
	ErrBufferTooSmall   = errors.New("renderer: destination buffer is too small")
)
