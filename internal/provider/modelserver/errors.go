package modelserver

import "errors"

var (
	ErrModelServerUnavailable = errors.New("model server unavailable")
	ErrInvalidResponse        = errors.New("invalid response from model server")
	ErrEncodeImage            = errors.New("encode image for model server")
)
