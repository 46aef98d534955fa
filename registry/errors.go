package registry

import "errors"

var (
	ErrArgsNotAvailable = errors.New("registry: args not available")
	ErrUnknownPartition = errors.New("registry: unknown topic or partition")
	ErrClosed           = errors.New("registry: registry is closed")
)
