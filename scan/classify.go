package scan

import (
	"encoding/json"
	"strings"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
)

// ServiceName names an identified service; "" means none was identified.
type ServiceName string

// MarshalJSON encodes an unidentified service as null.
func (n ServiceName) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

// ServiceGuess is a best-effort, non-authoritative identification of the
// service behind a port.
type ServiceGuess struct {
	Service    ServiceName `json:"service"`
	Protocol   string      `json:"protocol"`
	TLS        bool        `json:"tls"`
	Confidence Confidence  `json:"confidence"`
}

var commonPorts = map[int]string{
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "dns",
	80:    "http",
	110:   "pop3",
	111:   "rpcbind",
	135:   "msrpc",
	139:   "netbios-ssn",
	143:   "imap",
	389:   "ldap",
	443:   "https",
	445:   "smb",
	465:   "smtps",
	587:   "submission",
	993:   "imaps",
	995:   "pop3s",
	1433:  "mssql",
	1521:  "oracle",
	2049:  "nfs",
	2375:  "docker",
	2379:  "etcd",
	3000:  "http-alt",
	3306:  "mysql",
	3389:  "rdp",
	5432:  "postgres",
	5601:  "kibana",
	5672:  "amqp",
	5900:  "vnc",
	6379:  "redis",
	7001:  "weblogic",
	8000:  "http-alt",
	8080:  "http-proxy",
	8443:  "https-alt",
	9200:  "elasticsearch",
	11211: "memcached",
	27017: "mongodb",
}

type bannerHint struct {
	needle  string
	service string
}

// Checked in order; the first hint found in the banner wins, so more specific
// needles must come before generic ones such as "220".
var bannerHints = []bannerHint{
	{"SSH-", "ssh"},
	{"OpenSSH", "ssh"},
	{"220", "smtp"},
	{"ESMTP", "smtp"},
	{"IMAP", "imap"},
	{"POP3", "pop3"},
	{"MySQL", "mysql"},
	{"PostgreSQL", "postgres"},
	{"Redis", "redis"},
	{"mongodb", "mongodb"},
	{"HTTP/", "http"},
	{"nginx", "http"},
	{"Apache", "http"},
	{"Microsoft-IIS", "http"},
	{"RFB", "vnc"},
	{"SMB", "smb"},
	{"FTP", "ftp"},
	{"Telnet", "telnet"},
	{"LDAP", "ldap"},
}

var tlsServices = map[string]struct{}{
	"https": {},
	"imaps": {},
	"pop3s": {},
	"smtps": {},
}

var tlsPorts = map[int]struct{}{
	443:  {},
	465:  {},
	993:  {},
	995:  {},
	8443: {},
}

// DescribePort returns the well-known service name for a port, or "".
func DescribePort(port int) string {
	return commonPorts[port]
}

// Classify guesses the service on a port. A matching banner hint gives a
// medium confidence guess; otherwise the well-known port table is used with
// low confidence. An empty banner counts as no banner.
func Classify(port int, banner string) ServiceGuess {

	guess := ServiceGuess{
		Protocol:   "tcp",
		Confidence: ConfidenceLow,
	}

	if lower := strings.ToLower(strings.TrimSpace(banner)); lower != "" {
		for _, hint := range bannerHints {
			if strings.Contains(lower, strings.ToLower(hint.needle)) {
				guess.Service = ServiceName(hint.service)
				guess.Confidence = ConfidenceMedium
				break
			}
		}
	}

	if guess.Service == "" {
		guess.Service = ServiceName(commonPorts[port])
	}

	_, tlsService := tlsServices[string(guess.Service)]
	_, tlsPort := tlsPorts[port]
	guess.TLS = tlsService || tlsPort

	return guess
}
