package cooldown

import (
	"fmt"
	"time"
)

// Scope is the bucket a command's cooldown is tracked against
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeGuild   Scope = "guild"
	ScopeChannel Scope = "channel"
)

// ParseScope maps a configured scope name to a Scope. The empty string
// means per-user.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "", ScopeUser:
		return ScopeUser, nil
	case ScopeGuild:
		return ScopeGuild, nil
	case ScopeChannel:
		return ScopeChannel, nil
	}
	return "", fmt.Errorf("unknown cooldown scope: %q", s)
}

// Policy is the minimum interval between fires of one command within one
// scope.
type Policy struct {
	Scope    Scope
	Duration time.Duration
}

// Key builds the scope key for a command. Keys are namespaced by command so
// that commands sharing a scope do not share a bucket.
func (p Policy) Key(command, userID, guildID, channelID string) string {
	id := userID
	switch p.Scope {
	case ScopeGuild:
		id = guildID
	case ScopeChannel:
		id = channelID
	}
	return command + ":" + string(p.Scope) + ":" + id
}

// Decision is the outcome of a gate check
type Decision struct {
	Allowed   bool
	Remaining time.Duration
}

// FormatRemaining renders the wait as "{minutes}m {seconds}s"
func (d Decision) FormatRemaining() string {
	secs := int64(d.Remaining / time.Second)
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

// Gate decides whether a cooldown-gated command may fire
type Gate struct {
	store *Store
}

// NewGate creates a gate over store
func NewGate(store *Store) *Gate {
	return &Gate{store: store}
}

// CheckAndMaybeStart allows the fire and records now when the key has no
// record or its cooldown has elapsed; otherwise it denies with the time left.
// The read and the write happen under one lock acquisition, so concurrent
// callers on a fresh key see exactly one Allowed.
func (g *Gate) CheckAndMaybeStart(key string, policy Policy, now time.Time) Decision {
	var decision Decision
	g.store.update(key, func(last time.Time, ok bool) (time.Time, bool) {
		elapsed := now.Sub(last)
		if !ok || policy.Duration <= 0 || elapsed >= policy.Duration {
			decision = Decision{Allowed: true}
			return now, true
		}
		decision = Decision{Remaining: policy.Duration - elapsed}
		return last, false
	})
	return decision
}
