package scan

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	protocolICMP     = 1
	protocolIPv6ICMP = 58

	packetBufferSize = 1500
)

var echoPayload = []byte("vulnscan-echo")

// ICMPPinger sends a single ICMP echo request per Ping and waits for the
// matching reply. Unprivileged datagram sockets are used where the kernel
// allows them, with raw sockets as the fallback.
type ICMPPinger struct {
	id  int
	seq atomic.Uint32
}

var _ Pinger = (*ICMPPinger)(nil)

func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{id: os.Getpid() & 0xffff}
}

// Ping returns the round trip time to host. Every failure, including the
// timeout expiring before a reply, is returned as an error.
func (p *ICMPPinger) Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error) {

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return 0, fmt.Errorf("invalid address '%s': %w", host, err)
	}
	addr = addr.Unmap()

	conn, privileged, err := listenICMP(addr.Is4())
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("failed to set deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)

	var (
		requestType icmp.Type = ipv4.ICMPTypeEcho
		replyType   icmp.Type = ipv4.ICMPTypeEchoReply
		protocol              = protocolICMP
	)
	if !addr.Is4() {
		requestType, replyType, protocol = ipv6.ICMPTypeEchoRequest, ipv6.ICMPTypeEchoReply, protocolIPv6ICMP
	}

	request := icmp.Message{
		Type: requestType,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: echoPayload},
	}

	packet, err := request.Marshal(nil)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal echo request: %w", err)
	}

	var dst net.Addr = &net.UDPAddr{IP: addr.AsSlice()}
	if privileged {
		dst = &net.IPAddr{IP: addr.AsSlice()}
	}

	start := time.Now()
	if _, err := conn.WriteTo(packet, dst); err != nil {
		return 0, fmt.Errorf("failed to send echo request: %w", err)
	}

	reply := make([]byte, packetBufferSize)
	for {
		n, peer, err := conn.ReadFrom(reply)
		if err != nil {
			return 0, err
		}
		rtt := time.Since(start)

		msg, err := icmp.ParseMessage(protocol, reply[:n])
		if err != nil || msg.Type != replyType {
			continue
		}

		echo, ok := msg.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq || peerAddr(peer) != addr {
			continue
		}

		// datagram sockets have their identifier rewritten by the kernel
		if privileged && echo.ID != p.id {
			continue
		}

		return rtt, nil
	}
}

func listenICMP(v4 bool) (*icmp.PacketConn, bool, error) {
	network, rawNetwork, address := "udp6", "ip6:ipv6-icmp", "::"
	if v4 {
		network, rawNetwork, address = "udp4", "ip4:icmp", "0.0.0.0"
	}

	conn, err := icmp.ListenPacket(network, address)
	if err == nil {
		return conn, false, nil
	}

	conn, rawErr := icmp.ListenPacket(rawNetwork, address)
	if rawErr != nil {
		return nil, false, fmt.Errorf("failed to open ICMP socket: %w (unprivileged: %s)", rawErr, err)
	}

	return conn, true, nil
}

func peerAddr(peer net.Addr) netip.Addr {
	var ip net.IP
	switch a := peer.(type) {
	case *net.UDPAddr:
		ip = a.IP
	case *net.IPAddr:
		ip = a.IP
	default:
		return netip.Addr{}
	}
	addr, _ := netip.AddrFromSlice(ip)
	return addr.Unmap()
}
