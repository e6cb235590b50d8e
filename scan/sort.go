package scan

import "net/netip"

// IPSorter orders address strings numerically, so 10.0.0.9 sorts before
// 10.0.0.10. IPv4 addresses sort before IPv6 ones. Strings that are not
// addresses fall back to lexical order after all valid addresses.
type IPSorter []string

func (s IPSorter) Len() int { return len(s) }

func (s IPSorter) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s IPSorter) Less(i, j int) bool {
	ip1, err1 := netip.ParseAddr(s[i])
	ip2, err2 := netip.ParseAddr(s[j])

	switch {
	case err1 != nil && err2 != nil:
		return s[i] < s[j]
	case err1 != nil:
		return false
	case err2 != nil:
		return true
	}

	return ip1.Unmap().Compare(ip2.Unmap()) < 0
}
