package taskmanager

import (
	"time"

	"golang.org/x/time/rate"
)

// MinProgressInterval is the default minimum spacing between two published
// progress events of one manager. Override with WithProgressInterval.
const MinProgressInterval = 100 * time.Millisecond

// progressThrottle admits at most one progress event per interval, shared by all
// tasks. A limiter with burst 1 admits an event only when the interval has elapsed
// since the last admitted one. Other event kinds never consult it.
type progressThrottle struct {
	limiter *rate.Limiter
}

func newProgressThrottle(interval time.Duration) *progressThrottle {
	if interval <= 0 {
		return &progressThrottle{}
	}
	return &progressThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *progressThrottle) allow() bool {
	return p.limiter == nil || p.limiter.Allow()
}
