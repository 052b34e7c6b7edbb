package network

import "time"

// inputLimiter caps the inbound message rate of one connection. It is only
// used from the connection's read goroutine.
type inputLimiter struct {
	perSecond   int
	dirInterval time.Duration

	count   int
	resetAt time.Time
	lastDir time.Time
}

func newInputLimiter(perSecond int, dirInterval time.Duration) inputLimiter {
	return inputLimiter{perSecond: perSecond, dirInterval: dirInterval}
}

// allow counts a message against the one-second window.
func (l *inputLimiter) allow(now time.Time) bool {
	if now.After(l.resetAt) {
		l.count = 0
		l.resetAt = now.Add(time.Second)
	}
	l.count++
	return l.perSecond <= 0 || l.count <= l.perSecond
}

// allowDir enforces the minimum spacing of steering updates.
func (l *inputLimiter) allowDir(now time.Time) bool {
	if !l.lastDir.IsZero() && now.Sub(l.lastDir) < l.dirInterval {
		return false
	}
	l.lastDir = now
	return true
}
