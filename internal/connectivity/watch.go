package connectivity

import (
	"context"
	"time"
)

// Pinger is anything that can answer a cheap reachability probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Watch drives the monitor from periodic reachability probes until ctx is
// done. A failed probe transitions to offline, a successful one back to
// online.
func Watch(ctx context.Context, pinger Pinger, monitor *Monitor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := pinger.PingContext(ctx); err != nil {
				monitor.SetOffline()
			} else {
				monitor.SetOnline()
			}
		}
	}
}
