package scan

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultTimeout           = 2500 * time.Millisecond
	DefaultConcurrency       = 500
	DefaultBannerConcurrency = 200
)

// ConnectConfig configures a ConnectScanner. Zero values select defaults.
type ConnectConfig struct {
	// Timeout bounds each connect attempt.
	Timeout time.Duration
	// ReadTimeout bounds each banner read; defaults to Timeout/5.
	ReadTimeout time.Duration
	// Concurrency caps simultaneous connect probes.
	Concurrency int
	// BannerConcurrency caps simultaneous banner grabs. It defaults to
	// Concurrency, but never more than DefaultBannerConcurrency.
	BannerConcurrency int
	// GrabAllPorts makes the banner phase visit every selected port rather
	// than only the ports found open.
	GrabAllPorts bool
	// OnOpen is called, possibly concurrently, for each port found open.
	OnOpen func(port int)
	Dialer Dialer
}

// ConnectScanner runs a TCP connect scan followed by a banner grab phase.
// The two phases are throttled by separate limiters because a banner grab
// holds its connection far longer than a bare connect.
type ConnectScanner struct {
	timeout           time.Duration
	readTimeout       time.Duration
	maxRoutines       int
	maxBannerRoutines int
	grabAllPorts      bool
	onOpen            func(port int)
	prober            *Prober
	grabber           *BannerGrabber
}

var _ Scanner = (*ConnectScanner)(nil)

func NewConnectScanner(cfg ConnectConfig) *ConnectScanner {

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout(cfg.Timeout)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BannerConcurrency <= 0 {
		cfg.BannerConcurrency = min(cfg.Concurrency, DefaultBannerConcurrency)
	}

	return &ConnectScanner{
		timeout:           cfg.Timeout,
		readTimeout:       cfg.ReadTimeout,
		maxRoutines:       cfg.Concurrency,
		maxBannerRoutines: cfg.BannerConcurrency,
		grabAllPorts:      cfg.GrabAllPorts,
		onOpen:            cfg.OnOpen,
		prober:            NewProber(cfg.Dialer),
		grabber:           NewBannerGrabber(cfg.Dialer),
	}
}

// Scan probes every port in ports, then grabs and classifies banners. Failures
// of individual probes never surface; the only error is ctx.Err() when the
// caller cancels, in which case the partial report is returned with it.
func (s *ConnectScanner) Scan(ctx context.Context, host string, ports PortSpec) (Report, error) {

	report := NewReport(host)
	all := ports.Ports()

	startTime := time.Now()
	logrus.Debugf("Scanning %d ports on %s...", len(all), host)

	open, err := s.connectPhase(ctx, host, all)
	report.OpenPorts = open
	if err != nil {
		return report, err
	}

	logrus.Debugf("Connect phase for %s found %d open ports in %s", host, len(open), time.Since(startTime))

	targets := open
	if s.grabAllPorts {
		targets = all
	}

	results, err := s.bannerPhase(ctx, host, targets)
	report.Results = results

	logrus.Debugf("Scan of %s complete in %s", host, time.Since(startTime))

	return report, err
}

func (s *ConnectScanner) connectPhase(ctx context.Context, host string, ports []int) ([]int, error) {

	sem := semaphore.NewWeighted(int64(s.maxRoutines))
	wg := &sync.WaitGroup{}

	// one slot per port, so workers never share an index
	states := make([]PortState, len(ports))

	for i, port := range ports {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i, port int) {
			defer wg.Done()
			defer sem.Release(1)

			states[i] = s.prober.Attempt(ctx, host, port, s.timeout)
			if states[i] == PortOpen && s.onOpen != nil {
				s.onOpen(port)
			}
		}(i, port)
	}

	wg.Wait()

	open := []int{}
	for i, state := range states {
		if state == PortOpen {
			open = append(open, ports[i])
		}
	}

	return open, ctx.Err()
}

func (s *ConnectScanner) bannerPhase(ctx context.Context, host string, ports []int) ([]PortResult, error) {

	sem := semaphore.NewWeighted(int64(s.maxBannerRoutines))
	wg := &sync.WaitGroup{}

	records := make([]*PortResult, len(ports))

	for i, port := range ports {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i, port int) {
			defer wg.Done()
			defer sem.Release(1)

			banner, ok := s.grabber.Grab(ctx, host, port, s.timeout, s.readTimeout)
			if !ok {
				return
			}
			records[i] = &PortResult{
				Host:         host,
				Port:         port,
				Banner:       banner,
				ServiceGuess: Classify(port, banner),
			}
		}(i, port)
	}

	wg.Wait()

	results := []PortResult{}
	for _, r := range records {
		if r != nil {
			results = append(results, *r)
		}
	}

	return results, ctx.Err()
}
