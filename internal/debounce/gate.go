// Package debounce rate-limits a boolean contact condition into discrete
// trigger events.
package debounce

import "time"

// DefaultCooldown is the minimum interval between two triggers.
const DefaultCooldown = 500 * time.Millisecond

// Gate fires at most once per cooldown window. Contact does not need to be
// released between triggers: sustained contact fires again as soon as the
// window has elapsed.
type Gate struct {
	cooldown time.Duration
	last     time.Time
	fired    bool
}

// NewGate creates a gate with the given cooldown. Negative values are
// treated as zero.
func NewGate(cooldown time.Duration) *Gate {
	if cooldown < 0 {
		cooldown = 0
	}
	return &Gate{cooldown: cooldown}
}

// Allow reports whether a trigger fires for this observation. It fires iff
// contact is true and either the gate has never fired or strictly more than
// the cooldown has passed since the last trigger.
func (g *Gate) Allow(contact bool, now time.Time) bool {
	if !contact {
		return false
	}
	if g.fired && now.Sub(g.last) <= g.cooldown {
		return false
	}
	g.last = now
	g.fired = true
	return true
}

// LastTrigger returns the time of the most recent trigger and whether the
// gate has fired at all.
func (g *Gate) LastTrigger() (time.Time, bool) {
	return g.last, g.fired
}

// Cooldown returns the configured cooldown.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}
