package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		port   int
		banner string
		want   ServiceGuess
	}{
		{
			name: "ssh from port table",
			port: 22,
			want: ServiceGuess{Service: "ssh", Protocol: "tcp", TLS: false, Confidence: ConfidenceLow},
		},
		{
			name: "https from port table is tls",
			port: 443,
			want: ServiceGuess{Service: "https", Protocol: "tcp", TLS: true, Confidence: ConfidenceLow},
		},
		{
			name:   "ssh banner on unusual port",
			port:   9999,
			banner: "SSH-2.0-OpenSSH_8.1",
			want:   ServiceGuess{Service: "ssh", Protocol: "tcp", TLS: false, Confidence: ConfidenceMedium},
		},
		{
			name:   "smtp greeting",
			port:   25,
			banner: "220 mail.example.com ESMTP",
			want:   ServiceGuess{Service: "smtp", Protocol: "tcp", TLS: false, Confidence: ConfidenceMedium},
		},
		{
			name:   "hints are case insensitive",
			port:   1234,
			banner: "* ok imap4rev1 ready",
			want:   ServiceGuess{Service: "imap", Protocol: "tcp", TLS: false, Confidence: ConfidenceMedium},
		},
		{
			name:   "banner beats port table",
			port:   80,
			banner: "RFB 003.008",
			want:   ServiceGuess{Service: "vnc", Protocol: "tcp", TLS: false, Confidence: ConfidenceMedium},
		},
		{
			name:   "first hint in list order wins",
			port:   21,
			banner: "220 ProFTPD Server (FTP)",
			want:   ServiceGuess{Service: "smtp", Protocol: "tcp", TLS: false, Confidence: ConfidenceMedium},
		},
		{
			name:   "unmatched banner falls back to port table",
			port:   3306,
			banner: "\x0a5.7.33",
			want:   ServiceGuess{Service: "mysql", Protocol: "tcp", TLS: false, Confidence: ConfidenceLow},
		},
		{
			name: "unknown port",
			port: 31337,
			want: ServiceGuess{Service: "", Protocol: "tcp", TLS: false, Confidence: ConfidenceLow},
		},
		{
			name:   "tls port without known service",
			port:   8443,
			banner: "nginx",
			want:   ServiceGuess{Service: "http", Protocol: "tcp", TLS: true, Confidence: ConfidenceMedium},
		},
		{
			name:   "tls port overrides a banner service",
			port:   993,
			banner: "* OK IMAP ready",
			want:   ServiceGuess{Service: "imap", Protocol: "tcp", TLS: true, Confidence: ConfidenceMedium},
		},
		{
			name:   "whitespace banner counts as absent",
			port:   465,
			banner: "  \r\n",
			want:   ServiceGuess{Service: "smtps", Protocol: "tcp", TLS: true, Confidence: ConfidenceLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.port, tt.banner))
		})
	}
}

func TestDescribePort(t *testing.T) {
	assert.Equal(t, "redis", DescribePort(6379))
	assert.Equal(t, "", DescribePort(1))
}
