package scan

import (
	"fmt"
	"strings"
)

// PortResult describes a port whose banner connection succeeded.
type PortResult struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Banner string `json:"banner"`
	ServiceGuess
}

// Report is the outcome of scanning one host. OpenPorts and Results are
// ordered by port.
type Report struct {
	Host      string       `json:"host"`
	OpenPorts []int        `json:"open_ports"`
	Results   []PortResult `json:"results"`
}

func NewReport(host string) Report {
	return Report{
		Host:      host,
		OpenPorts: []int{},
		Results:   []PortResult{},
	}
}

// Result returns the banner record for a port, if there is one.
func (r Report) Result(port int) (PortResult, bool) {
	for _, res := range r.Results {
		if res.Port == port {
			return res, true
		}
	}
	return PortResult{}, false
}

func (r Report) String() string {

	text := fmt.Sprintf("Scan results for host %s\n", r.Host)

	if len(r.OpenPorts) == 0 {
		return fmt.Sprintf("%s\t%s\n", text, "No open ports found")
	}

	text = fmt.Sprintf(
		"%s\t%s%s%s%s%s\n",
		text,
		pad("PORT", 10),
		pad("STATE", 8),
		pad("SERVICE", 20),
		pad("CONFIDENCE", 12),
		"BANNER",
	)

	for _, port := range r.OpenPorts {
		guess := Classify(port, "")
		banner := ""
		if res, ok := r.Result(port); ok {
			guess = res.ServiceGuess
			banner = res.Banner
		}

		service := string(guess.Service)
		if service == "" {
			service = "unknown"
		}
		if guess.TLS {
			service += "/tls"
		}

		text = fmt.Sprintf(
			"%s\t%s%s%s%s%s\n",
			text,
			pad(fmt.Sprintf("%d/tcp", port), 10),
			pad("open", 8),
			pad(service, 20),
			pad(string(guess.Confidence), 12),
			firstLine(banner),
		)
	}

	return text
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}

func pad(input string, length int) string {
	for len(input) < length {
		input += " "
	}
	return input
}
