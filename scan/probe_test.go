package scan

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestProber_Attempt(t *testing.T) {
	open := serveGreeting(t, nil)
	closed := closedPort(t)

	prober := NewProber(nil)

	assert.Equal(t, PortOpen, prober.Attempt(context.Background(), "127.0.0.1", open, time.Second))
	assert.Equal(t, PortClosed, prober.Attempt(context.Background(), "127.0.0.1", closed, time.Second))
}

func TestProber_UnresolvableHostIsClosed(t *testing.T) {
	prober := NewProber(nil)
	assert.Equal(t, PortClosed, prober.Attempt(context.Background(), "host.invalid", 80, 500*time.Millisecond))
}

func TestProber_ClosesConnection(t *testing.T) {
	ctrl := gomock.NewController(t)

	client, server := net.Pipe()
	defer server.Close()

	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().DialContext(gomock.Any(), "tcp", "10.0.0.1:8080").Return(client, nil)

	state := NewProber(dialer).Attempt(context.Background(), "10.0.0.1", 8080, time.Second)
	require.Equal(t, PortOpen, state)

	_, err := server.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err, "probe connection should be closed before Attempt returns")
}

func TestProber_DialErrorIsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)

	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().DialContext(gomock.Any(), "tcp", "[2001:db8::1]:22").Return(nil, errors.New("connection reset by peer"))

	assert.Equal(t, PortClosed, NewProber(dialer).Attempt(context.Background(), "2001:db8::1", 22, time.Second))
}

func TestProber_DeadlineApplied(t *testing.T) {
	ctrl := gomock.NewController(t)

	dialer := NewMockDialer(ctrl)
	dialer.EXPECT().DialContext(gomock.Any(), "tcp", gomock.Any()).DoAndReturn(
		func(ctx context.Context, _, _ string) (net.Conn, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok, "dial context should carry the probe timeout")
			<-ctx.Done()
			return nil, ctx.Err()
		},
	)

	start := time.Now()
	state := NewProber(dialer).Attempt(context.Background(), "10.0.0.1", 80, 50*time.Millisecond)
	assert.Equal(t, PortClosed, state)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestPortState_String(t *testing.T) {
	assert.Equal(t, "open", PortOpen.String())
	assert.Equal(t, "closed", PortClosed.String())
}
