package scan

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestIteration(t *testing.T) {
	ti, err := NewTargetIterator("192.168.1.1/24")
	require.Nil(t, err)

	ip, err := ti.Peek()
	require.Nil(t, err)

	assert.Equal(t, "192.168.1.0", ip.String())

	for i := 0; i < 256; i++ {

		ip, err := ti.Peek()
		require.Nil(t, err)
		assert.Equal(t, fmt.Sprintf("192.168.1.%d", i), ip.String())

		ip, err = ti.Next()
		require.Nil(t, err)
		assert.Equal(t, fmt.Sprintf("192.168.1.%d", i), ip.String())
	}

	_, err = ti.Next()
	assert.Equal(t, io.EOF, err)

	_, err = ti.Peek()
	assert.Equal(t, io.EOF, err)
}

func TestExpandNetwork(t *testing.T) {
	tests := []struct {
		name    string
		network string
		want    []string
	}{
		{
			name:    "/30 drops network and broadcast",
			network: "192.168.1.0/30",
			want:    []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:    "host bits are ignored",
			network: "192.168.1.2/30",
			want:    []string{"192.168.1.1", "192.168.1.2"},
		},
		{
			name:    "/31 keeps both addresses",
			network: "10.0.0.0/31",
			want:    []string{"10.0.0.0", "10.0.0.1"},
		},
		{
			name:    "/32",
			network: "10.1.2.3/32",
			want:    []string{"10.1.2.3"},
		},
		{
			name:    "bare address is a single host",
			network: "10.1.2.3",
			want:    []string{"10.1.2.3"},
		},
		{
			name:    "IPv6 /126 drops only the anycast address",
			network: "2001:db8::/126",
			want:    []string{"2001:db8::1", "2001:db8::2", "2001:db8::3"},
		},
		{
			name:    "bare IPv6 address",
			network: "2001:db8::1",
			want:    []string{"2001:db8::1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandNetwork(tt.network)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandNetwork_Slash24(t *testing.T) {
	hosts, err := ExpandNetwork("10.0.0.0/24")
	require.NoError(t, err)
	require.Len(t, hosts, 254)
	assert.Equal(t, "10.0.0.1", hosts[0])
	assert.Equal(t, "10.0.0.9", hosts[8])
	assert.Equal(t, "10.0.0.10", hosts[9])
	assert.Equal(t, "10.0.0.254", hosts[253])
}

func TestExpandNetwork_Invalid(t *testing.T) {
	for _, network := range []string{
		"",
		"invalid",
		"example.com",
		"10.0.0.0/33",
		"10.0.0.256/24",
		"fe80::1%eth0",
	} {
		t.Run(network, func(t *testing.T) {
			_, err := ExpandNetwork(network)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidNetworkSpec)
		})
	}
}

func TestExpandNetwork_TooLarge(t *testing.T) {
	for _, network := range []string{
		"10.0.0.0/15",
		"10.0.0.0/8",
		"2001:db8::/64",
	} {
		t.Run(network, func(t *testing.T) {
			_, err := ExpandNetwork(network)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNetworkTooLarge)
			assert.NotErrorIs(t, err, ErrInvalidNetworkSpec)
		})
	}
}

func TestExpandNetwork_LargestAllowed(t *testing.T) {
	hosts, err := ExpandNetwork("172.16.0.0/16")
	require.NoError(t, err)
	assert.Len(t, hosts, 65534)
}
