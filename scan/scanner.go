package scan

import "context"

// Scanner discovers the open TCP ports of a single host.
type Scanner interface {
	Scan(ctx context.Context, host string, ports PortSpec) (Report, error)
}
