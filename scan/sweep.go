package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultSweepConcurrency = 100

// Pinger measures the round trip time of a single reachability check.
type Pinger interface {
	Ping(ctx context.Context, host string, timeout time.Duration) (time.Duration, error)
}

// Sweeper checks many hosts for reachability in parallel.
type Sweeper struct {
	pinger  Pinger
	limiter *rate.Limiter
}

// NewSweeper builds a sweeper around pinger. A positive rateLimit paces
// checks to that many per second across all workers.
func NewSweeper(pinger Pinger, rateLimit int) *Sweeper {
	s := &Sweeper{pinger: pinger}
	if rateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rateLimit), 1)
	}
	return s
}

// Sweep checks every host with at most concurrency checks in flight and
// returns the hosts that answered, in numeric address order. A host is alive
// only when its check succeeds with a strictly positive round trip time.
func (s *Sweeper) Sweep(ctx context.Context, hosts []string, timeout time.Duration, concurrency int) ([]string, error) {

	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency <= 0 {
		concurrency = DefaultSweepConcurrency
	}
	if len(hosts) == 0 {
		return []string{}, ctx.Err()
	}
	concurrency = min(concurrency, len(hosts))

	startTime := time.Now()
	logrus.Debugf("Sweeping %d hosts with %d workers...", len(hosts), concurrency)

	// a pacing wait ends only once ctx is done, not when its deadline is merely near
	paceCtx, stopPacing := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPacing()
	stop := context.AfterFunc(ctx, stopPacing)
	defer stop()

	wg := &sync.WaitGroup{}
	hostChan := make(chan string, concurrency)
	aliveChan := make(chan string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go s.runWorker(ctx, paceCtx, wg, timeout, hostChan, aliveChan)
	}

	go s.feedHosts(ctx, hosts, hostChan)

	go func() {
		wg.Wait()
		close(aliveChan)
	}()

	alive := []string{}
	for host := range aliveChan {
		alive = append(alive, host)
	}

	sort.Sort(IPSorter(alive))

	logrus.Debugf("Sweep found %d of %d hosts alive in %s", len(alive), len(hosts), time.Since(startTime))

	return alive, ctx.Err()
}

func (s *Sweeper) runWorker(ctx, paceCtx context.Context, wg *sync.WaitGroup, timeout time.Duration, hostChan <-chan string, aliveChan chan<- string) {
	defer wg.Done()

	for {
		select {
		case host, ok := <-hostChan:
			if !ok {
				return
			}
			if s.limiter != nil {
				if err := s.limiter.Wait(paceCtx); err != nil {
					return
				}
			}
			if s.isAlive(ctx, host, timeout) {
				aliveChan <- host
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) feedHosts(ctx context.Context, hosts []string, hostChan chan<- string) {
	defer close(hostChan)

	for _, host := range hosts {
		select {
		case hostChan <- host:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) isAlive(ctx context.Context, host string, timeout time.Duration) bool {
	rtt, err := s.pinger.Ping(ctx, host, timeout)
	if err != nil {
		logrus.Debugf("No reply from %s: %s", host, err)
		return false
	}
	// a zero or negative measurement is not proof of life
	return rtt > 0
}
