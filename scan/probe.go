package scan

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mock_scan.go -package=scan github.com/liamg/vulnscan/scan Dialer,Pinger

type PortState uint8

const (
	PortClosed PortState = iota
	PortOpen
)

func (s PortState) String() string {
	if s == PortOpen {
		return "open"
	}
	return "closed"
}

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober performs bare TCP connect probes.
type Prober struct {
	dialer Dialer
}

func NewProber(dialer Dialer) *Prober {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &Prober{dialer: dialer}
}

// Attempt reports whether a TCP handshake with host:port completes within
// timeout. Refused, reset, timed out, unreachable and unresolvable targets are
// all reported as PortClosed. An established connection is closed before
// Attempt returns.
func (p *Prober) Attempt(ctx context.Context, host string, port int, timeout time.Duration) PortState {

	connCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := p.dialer.DialContext(connCtx, "tcp", addr)
	if err != nil {
		logrus.Debugf("Connect to %s failed: %s", addr, err)
		return PortClosed
	}

	if err := conn.Close(); err != nil {
		logrus.Debugf("Error closing connection to %s: %s", addr, err)
	}

	return PortOpen
}
