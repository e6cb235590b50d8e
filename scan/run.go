package scan

import (
	"context"
	"time"
)

// RunTCPScan parses portSpec and scans host with the given connect timeout
// and connect concurrency. Banner grabs run with at most
// min(connectConcurrency, DefaultBannerConcurrency) in flight.
func RunTCPScan(host, portSpec string, timeoutSeconds float64, connectConcurrency int) (Report, error) {
	return RunTCPScanContext(context.Background(), host, portSpec, timeoutSeconds, connectConcurrency)
}

// RunTCPScanContext is RunTCPScan with caller-controlled cancellation.
func RunTCPScanContext(ctx context.Context, host, portSpec string, timeoutSeconds float64, connectConcurrency int) (Report, error) {

	ports, err := ParsePorts(portSpec)
	if err != nil {
		return Report{}, err
	}

	scanner := NewConnectScanner(ConnectConfig{
		Timeout:     seconds(timeoutSeconds),
		Concurrency: connectConcurrency,
	})

	return scanner.Scan(ctx, host, ports)
}

// RunICMPSweep pings every usable host of subnetSpec and returns the live
// ones in numeric order.
func RunICMPSweep(subnetSpec string, timeoutSeconds float64, concurrency int) ([]string, error) {
	return RunICMPSweepContext(context.Background(), subnetSpec, timeoutSeconds, concurrency)
}

// RunICMPSweepContext is RunICMPSweep with caller-controlled cancellation.
func RunICMPSweepContext(ctx context.Context, subnetSpec string, timeoutSeconds float64, concurrency int) ([]string, error) {

	hosts, err := ExpandNetwork(subnetSpec)
	if err != nil {
		return nil, err
	}

	return NewSweeper(NewICMPPinger(), 0).Sweep(ctx, hosts, seconds(timeoutSeconds), concurrency)
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
