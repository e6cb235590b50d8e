package scan

import "errors"

var (
	ErrInvalidPortSpec    = errors.New("invalid port spec")
	ErrInvalidNetworkSpec = errors.New("invalid network spec")
	ErrNetworkTooLarge    = errors.New("network too large")
)
