package scan

import (
	"io"
	"net"
	"strconv"
	"testing"

	"github.com/phayes/freeport"
	"github.com/stretchr/testify/require"
)

// serveGreeting starts a local TCP server that writes greeting to every
// client and then holds the connection until the client hangs up.
func serveGreeting(t *testing.T, greeting []byte) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return acceptWithGreeting(t, listener, greeting)
}

func acceptWithGreeting(t *testing.T, listener net.Listener, greeting []byte) int {
	t.Helper()
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				if len(greeting) > 0 {
					_, _ = c.Write(greeting)
				}
				_, _ = io.Copy(io.Discard, c)
			}(conn)
		}
	}()

	return listener.Addr().(*net.TCPAddr).Port
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()

	port, err := freeport.GetFreePort()
	require.NoError(t, err)
	return port
}

// serveWithClosedNeighbour listens on a port whose successor is not in use.
func serveWithClosedNeighbour(t *testing.T, greeting []byte) int {
	t.Helper()

	for attempt := 0; attempt < 20; attempt++ {
		port, err := freeport.GetFreePort()
		require.NoError(t, err)
		if port >= MaxPort {
			continue
		}

		neighbour, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port+1))
		if err != nil {
			continue
		}
		_ = neighbour.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
		if err != nil {
			continue
		}

		return acceptWithGreeting(t, listener, greeting)
	}

	t.Fatal("could not find a port with a free neighbour")
	return 0
}
