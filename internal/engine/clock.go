package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the logical scan clock. Every scan advances it by a fixed
// period; wall-clock time is never read.
//
// Thread-safety: reads are safe from any goroutine. Only the goroutine
// running scans calls Next.
type Clock struct {
	scan   atomic.Int64
	period time.Duration
}

// NewClock creates a clock at scan 0.
func NewClock(period time.Duration) *Clock {
	return &Clock{period: period}
}

// Next starts the next scan and returns its 1-based number.
func (c *Clock) Next() int64 {
	return c.scan.Add(1)
}

// Scan returns the number of the current scan, 0 before the first.
func (c *Clock) Scan() int64 {
	return c.scan.Load()
}

// Now is the controller time at the start of the current scan. Scan 1
// runs at time 0.
func (c *Clock) Now() time.Duration {
	n := c.scan.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(n-1) * c.period
}

// Period returns the scan period.
func (c *Clock) Period() time.Duration {
	return c.period
}
