package scan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_String(t *testing.T) {
	report := NewReport("10.0.0.1")
	report.OpenPorts = []int{22, 443, 31337}
	report.Results = []PortResult{
		{Host: "10.0.0.1", Port: 22, Banner: "SSH-2.0-OpenSSH_8.1\r\nextra", ServiceGuess: Classify(22, "SSH-2.0-OpenSSH_8.1")},
	}

	text := report.String()

	assert.Contains(t, text, "Scan results for host 10.0.0.1")
	assert.Contains(t, text, "22/tcp")
	assert.Contains(t, text, "SSH-2.0-OpenSSH_8.1")
	assert.NotContains(t, text, "extra")
	assert.Contains(t, text, "https/tls")
	assert.Contains(t, text, "unknown")
}

func TestReport_StringNoOpenPorts(t *testing.T) {
	assert.Contains(t, NewReport("10.0.0.1").String(), "No open ports found")
}

func TestReport_JSONShape(t *testing.T) {
	report := NewReport("10.0.0.1")
	report.OpenPorts = []int{22}
	report.Results = []PortResult{{Host: "10.0.0.1", Port: 22, Banner: "SSH-2.0", ServiceGuess: Classify(22, "SSH-2.0")}}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"host": "10.0.0.1",
		"open_ports": [22],
		"results": [{
			"host": "10.0.0.1",
			"port": 22,
			"banner": "SSH-2.0",
			"service": "ssh",
			"protocol": "tcp",
			"tls": false,
			"confidence": "medium"
		}]
	}`, string(data))
}

func TestReport_JSONUnidentifiedService(t *testing.T) {
	result := PortResult{Host: "10.0.0.1", Port: 31337, ServiceGuess: Classify(31337, "")}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"host": "10.0.0.1",
		"port": 31337,
		"banner": "",
		"service": null,
		"protocol": "tcp",
		"tls": false,
		"confidence": "low"
	}`, string(data))
}
