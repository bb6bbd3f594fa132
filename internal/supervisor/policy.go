package supervisor

import "time"

// Policy decides how long to wait before the next relaunch. The failure
// count is the number of consecutive nonzero exits so far; implementations
// may use it for backoff.
type Policy interface {
	NextDelay(consecutiveFailures int) time.Duration
}

// FixedDelay relaunches after the same delay regardless of how the child
// exited. This deliberately favors availability over failure containment:
// a permanently broken bot will be retried forever.
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) NextDelay(int) time.Duration {
	if p.Delay <= 0 {
		return 10 * time.Second
	}
	return p.Delay
}
