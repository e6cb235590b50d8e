package scan

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// BannerSize is the most we read from a server that speaks first.
const BannerSize = 128

// DefaultReadTimeout derives the banner read timeout from the connect timeout.
func DefaultReadTimeout(connectTimeout time.Duration) time.Duration {
	return connectTimeout / 5
}

// BannerGrabber reads the first bytes a server sends after connecting.
type BannerGrabber struct {
	dialer Dialer
}

func NewBannerGrabber(dialer Dialer) *BannerGrabber {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &BannerGrabber{dialer: dialer}
}

// Grab connects to host:port on its own connection and reads up to BannerSize
// bytes. ok is false only when the connection could not be established. A
// connection that yields nothing before readTimeout gives an empty banner.
// Invalid UTF-8 is dropped and surrounding whitespace trimmed.
func (g *BannerGrabber) Grab(ctx context.Context, host string, port int, connectTimeout, readTimeout time.Duration) (banner string, ok bool) {

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	conn, err := g.dialer.DialContext(connCtx, "tcp", addr)
	cancel()
	if err != nil {
		logrus.Debugf("Banner connect to %s failed: %s", addr, err)
		return "", false
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.Debugf("Error closing banner connection to %s: %s", addr, err)
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		logrus.Debugf("Cannot set read deadline on %s: %s", addr, err)
		return "", true
	}

	// unblock the read early if the whole batch is cancelled
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buf := make([]byte, BannerSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil {
			logrus.Debugf("No banner from %s: %s", addr, err)
		}
		return "", true
	}

	return strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), "")), true
}
