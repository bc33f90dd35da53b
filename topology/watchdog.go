package topology

import (
	"context"
	"log"
	"time"
)

// probe reports a monotonic progress counter.
type probe func() int64

// watchdog cancels a topology that makes no progress for a full period.
type watchdog struct {
	Verbose bool
	Timeout time.Duration
	Probes  []probe
}

func (wd *watchdog) progress() (sum int64) {
	for _, p := range wd.Probes {
		sum += p()
	}
	return
}

// watch runs until ctx or done is closed. When no instruction executes and
// no conduit transfer completes for a full period, the topology is cancelled
// with ErrTopologyDeadlock.
func (wd *watchdog) watch(ctx context.Context, cancel context.CancelCauseFunc, done <-chan struct{}) {
	ticker := time.NewTicker(wd.Timeout)
	defer ticker.Stop()

	last := wd.progress()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			now := wd.progress()
			if now == last {
				if wd.Verbose {
					log.Print(f("watchdog: no progress in %v at %d", wd.Timeout, now))
				}
				cancel(ErrTopologyDeadlock)
				return
			}
			last = now
		}
	}
}
