package mock

import "errors"

var errShape = errors.New("mock embedder: tensor must be 1xCxHxW and match its data")
