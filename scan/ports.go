package scan

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// PortRange is an inclusive range of TCP ports.
type PortRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r PortRange) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PortSpec is a normalised port selection: ranges are sorted and no two of
// them overlap or touch.
type PortSpec []PortRange

// ParsePorts parses selections such as "22,80,443,8080-8090". The literal
// "-" (or "-p-") selects every port. Descending ranges are swapped.
func ParsePorts(selection string) (PortSpec, error) {

	s := strings.TrimSpace(selection)
	if s == "" {
		return nil, fmt.Errorf("%w: empty selection", ErrInvalidPortSpec)
	}

	if s == "-" || s == "-p-" {
		return PortSpec{{Start: MinPort, End: MaxPort}}, nil
	}

	var raw []PortRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseRange(part)
		if err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no ports in '%s'", ErrInvalidPortSpec, selection)
	}

	return mergeRanges(raw), nil
}

func parseRange(part string) (PortRange, error) {

	if lo, hi, ok := strings.Cut(part, "-"); ok {
		start, err1 := strconv.Atoi(strings.TrimSpace(lo))
		end, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil {
			return PortRange{}, fmt.Errorf("%w: invalid range '%s'", ErrInvalidPortSpec, part)
		}
		if start > end {
			start, end = end, start
		}
		if start < MinPort || end > MaxPort {
			return PortRange{}, fmt.Errorf("%w: port(s) out of range in '%s'; valid %d-%d", ErrInvalidPortSpec, part, MinPort, MaxPort)
		}
		return PortRange{Start: start, End: end}, nil
	}

	port, err := strconv.Atoi(part)
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: invalid port '%s'", ErrInvalidPortSpec, part)
	}
	if port < MinPort || port > MaxPort {
		return PortRange{}, fmt.Errorf("%w: port(s) out of range in '%s'; valid %d-%d", ErrInvalidPortSpec, part, MinPort, MaxPort)
	}
	return PortRange{Start: port, End: port}, nil
}

// mergeRanges sorts the ranges and collapses any that overlap or are adjacent.
func mergeRanges(raw []PortRange) PortSpec {
	sort.Slice(raw, func(i, j int) bool {
		if raw[i].Start == raw[j].Start {
			return raw[i].End < raw[j].End
		}
		return raw[i].Start < raw[j].Start
	})

	merged := PortSpec{raw[0]}
	for _, r := range raw[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End+1 {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Ports returns every selected port in ascending order.
func (ps PortSpec) Ports() []int {
	ports := make([]int, 0, ps.Count())
	for _, r := range ps {
		for p := r.Start; p <= r.End; p++ {
			ports = append(ports, p)
		}
	}
	return ports
}

// Count is the number of selected ports.
func (ps PortSpec) Count() int {
	n := 0
	for _, r := range ps {
		n += r.End - r.Start + 1
	}
	return n
}

// String renders the canonical selection, which ParsePorts accepts.
func (ps PortSpec) String() string {
	parts := make([]string, len(ps))
	for i, r := range ps {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
