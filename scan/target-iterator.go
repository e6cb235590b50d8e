package scan

import (
	"fmt"
	"io"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// MaxExpandHosts bounds the number of hosts ExpandNetwork will produce.
const MaxExpandHosts = 1 << 16

// TargetIterator walks every address of a network, network and broadcast
// addresses included. A bare address is treated as a single-host network.
type TargetIterator struct {
	prefix netip.Prefix
	next   netip.Addr
	last   netip.Addr
	done   bool
}

func NewTargetIterator(target string) (*TargetIterator, error) {

	prefix, err := parseNetwork(target)
	if err != nil {
		return nil, err
	}

	return &TargetIterator{
		prefix: prefix,
		next:   prefix.Addr(),
		last:   netipx.PrefixLastIP(prefix),
	}, nil
}

func parseNetwork(target string) (netip.Prefix, error) {
	target = strings.TrimSpace(target)

	if strings.Contains(target, "/") {
		prefix, err := netip.ParsePrefix(target)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("%w: '%s': %s", ErrInvalidNetworkSpec, target, err)
		}
		return prefix.Masked(), nil
	}

	addr, err := netip.ParseAddr(target)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: '%s': %s", ErrInvalidNetworkSpec, target, err)
	}
	if addr.Zone() != "" {
		return netip.Prefix{}, fmt.Errorf("%w: '%s': zoned addresses are not networks", ErrInvalidNetworkSpec, target)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Prefix is the network being iterated.
func (ti *TargetIterator) Prefix() netip.Prefix {
	return ti.prefix
}

// Peek returns the next address without advancing.
func (ti *TargetIterator) Peek() (netip.Addr, error) {
	if ti.done {
		return netip.Addr{}, io.EOF
	}
	return ti.next, nil
}

// Next returns the next address, or io.EOF once the network is exhausted.
func (ti *TargetIterator) Next() (netip.Addr, error) {
	if ti.done {
		return netip.Addr{}, io.EOF
	}

	ip := ti.next
	if ip == ti.last {
		ti.done = true
	} else {
		ti.next = ip.Next()
	}
	return ip, nil
}

// ExpandNetwork lists the usable host addresses of a network in ascending
// order. For IPv4 the network and broadcast addresses are skipped unless the
// prefix is /31 or /32; for IPv6 the subnet-router anycast address is skipped
// unless the prefix is /127 or /128.
func ExpandNetwork(network string) ([]string, error) {

	ti, err := NewTargetIterator(network)
	if err != nil {
		return nil, err
	}

	prefix := ti.Prefix()
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	skipFirst := hostBits >= 2
	skipLast := skipFirst && prefix.Addr().Is4()

	if hostBits > 17 || usableHosts(hostBits, skipFirst, skipLast) > MaxExpandHosts {
		return nil, fmt.Errorf("%w: '%s' has more than %d hosts", ErrNetworkTooLarge, network, MaxExpandHosts)
	}

	first, last := prefix.Addr(), netipx.PrefixLastIP(prefix)

	hosts := make([]string, 0, usableHosts(hostBits, skipFirst, skipLast))
	for {
		ip, err := ti.Next()
		if err == io.EOF {
			break
		}
		if (skipFirst && ip == first) || (skipLast && ip == last) {
			continue
		}
		hosts = append(hosts, ip.String())
	}

	return hosts, nil
}

func usableHosts(hostBits int, skipFirst, skipLast bool) int {
	n := 1 << hostBits
	if skipFirst {
		n--
	}
	if skipLast {
		n--
	}
	return n
}
