package assessment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Tier is the urgency band of the remaining time.
type Tier string

const (
	TierNormal  Tier = "normal"
	TierWarning Tier = "warning"
	TierDanger  Tier = "danger"
)

// TierFor maps the percentage of time left to its tier. Boundaries belong to
// the more urgent tier.
func TierFor(percentLeft float64) Tier {
	switch {
	case percentLeft <= 10:
		return TierDanger
	case percentLeft <= 25:
		return TierWarning
	default:
		return TierNormal
	}
}

// FormatClock renders seconds as M:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Ticker delivers ticks. *time.Ticker satisfies it through NewTicker.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewTicker returns a wall-clock Ticker firing every d.
func NewTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Countdown is the per-attempt clock. Remaining time never increases and
// never goes below zero; the transition to zero fires onExpire exactly once.
type Countdown struct {
	mu        sync.Mutex
	total     int
	remaining int
	expired   bool
	onExpire  func()
}

// NewCountdown starts a countdown of totalSeconds. A non-positive total falls
// back to one hour.
func NewCountdown(totalSeconds int, onExpire func()) *Countdown {
	if totalSeconds <= 0 {
		totalSeconds = 3600
	}
	return &Countdown{total: totalSeconds, remaining: totalSeconds, onExpire: onExpire}
}

// Tick decrements the clock by one second and returns the remaining seconds.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	if c.remaining > 0 {
		c.remaining--
	}
	left := c.remaining
	fire := left == 0 && !c.expired
	if fire {
		c.expired = true
	}
	c.mu.Unlock()

	if fire && c.onExpire != nil {
		c.onExpire()
	}
	return left
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Total returns the initial length in seconds.
func (c *Countdown) Total() int { return c.total }

// Expired reports whether the clock has reached zero.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

// PercentLeft returns the remaining share of the total, 0..100.
func (c *Countdown) PercentLeft() float64 {
	return float64(c.Remaining()) / float64(c.total) * 100
}

// Run ticks the countdown on every tick from t until ctx is cancelled or the
// clock expires. onTick, when set, receives the remaining seconds after each tick.
func (c *Countdown) Run(ctx context.Context, t Ticker, onTick func(remaining int)) {
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			left := c.Tick()
			if onTick != nil {
				onTick(left)
			}
			if left == 0 {
				return
			}
		}
	}
}
