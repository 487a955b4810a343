// Package lockout implements the per-principal failed-login policy. It is pure: callers load
// the current State, call Next, and persist the result under the principal's row lock.
package lockout

import "time"

// DefaultThreshold is the number of consecutive failed logins that blocks a principal.
const DefaultThreshold = 5

// State is the lockout-relevant slice of a principal's status.
type State struct {
	FailedLoginCount int
	Blocked          bool
	BlockedSince     *time.Time
}

// Policy maps the current State and the outcome of one verification to the next State.
// There is no cooldown: a blocked principal stays blocked until an administrator resets it.
type Policy struct {
	Threshold int
}

// NewPolicy returns a Policy with threshold, falling back to DefaultThreshold when threshold < 1.
func NewPolicy(threshold int) Policy {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return Policy{Threshold: threshold}
}

// Next returns the state after one login attempt. A failure increments the count, saturating
// at Threshold, and blocks once the count reaches Threshold. A success resets the count and
// leaves the blocked flags untouched.
func (p Policy) Next(cur State, succeeded bool, now time.Time) State {
	if succeeded {
		return State{
			FailedLoginCount: 0,
			Blocked:          cur.Blocked,
			BlockedSince:     cur.BlockedSince,
		}
	}
	threshold := p.threshold()
	next := State{
		FailedLoginCount: cur.FailedLoginCount + 1,
		Blocked:          cur.Blocked,
		BlockedSince:     cur.BlockedSince,
	}
	if next.FailedLoginCount > threshold {
		next.FailedLoginCount = threshold
	}
	if next.FailedLoginCount >= threshold {
		next.Blocked = true
		if next.BlockedSince == nil {
			t := now.UTC()
			next.BlockedSince = &t
		}
	}
	return next
}

// JustBlocked reports whether the transition from prev to next crossed into the blocked state.
func JustBlocked(prev, next State) bool {
	return !prev.Blocked && next.Blocked
}

func (p Policy) threshold() int {
	if p.Threshold < 1 {
		return DefaultThreshold
	}
	return p.Threshold
}
