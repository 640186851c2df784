package cooldown_test

import (
	"sync"
	"testing"
	"time"

	"github.com/guild-helper-bot-go/internal/services/cooldown"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGate_CheckAndMaybeStart(t *testing.T) {
	policy := cooldown.Policy{Scope: cooldown.ScopeGuild, Duration: 15 * time.Minute}

	t.Run("within cooldown denies with remaining wait", func(t *testing.T) {
		gate := cooldown.NewGate(cooldown.NewStore())

		first := gate.CheckAndMaybeStart("k", policy, t0)
		require.True(t, first.Allowed)
		require.Zero(t, first.Remaining)

		second := gate.CheckAndMaybeStart("k", policy, t0.Add(90*time.Second))
		require.False(t, second.Allowed)
		require.Equal(t, 15*time.Minute-90*time.Second, second.Remaining)
	})

	t.Run("after cooldown allows again", func(t *testing.T) {
		gate := cooldown.NewGate(cooldown.NewStore())

		require.True(t, gate.CheckAndMaybeStart("k", policy, t0).Allowed)
		require.True(t, gate.CheckAndMaybeStart("k", policy, t0.Add(15*time.Minute)).Allowed)
		require.True(t, gate.CheckAndMaybeStart("k", policy, t0.Add(40*time.Minute)).Allowed)
	})

	t.Run("denied check does not move the record", func(t *testing.T) {
		store := cooldown.NewStore()
		gate := cooldown.NewGate(store)

		gate.CheckAndMaybeStart("k", policy, t0)
		gate.CheckAndMaybeStart("k", policy, t0.Add(time.Minute))

		last, ok := store.LastFire("k")
		require.True(t, ok)
		require.Equal(t, t0, last)
	})

	t.Run("keys are independent", func(t *testing.T) {
		gate := cooldown.NewGate(cooldown.NewStore())

		require.True(t, gate.CheckAndMaybeStart("a", policy, t0).Allowed)
		require.True(t, gate.CheckAndMaybeStart("b", policy, t0).Allowed)
		require.False(t, gate.CheckAndMaybeStart("a", policy, t0).Allowed)
	})

	t.Run("zero duration always allows and resets", func(t *testing.T) {
		store := cooldown.NewStore()
		gate := cooldown.NewGate(store)
		zero := cooldown.Policy{Scope: cooldown.ScopeUser}

		for i := 0; i < 3; i++ {
			now := t0.Add(time.Duration(i) * time.Millisecond)
			require.True(t, gate.CheckAndMaybeStart("k", zero, now).Allowed)
			last, _ := store.LastFire("k")
			require.Equal(t, now, last)
		}
	})
}

func TestGate_FifteenMinuteScenario(t *testing.T) {
	gate := cooldown.NewGate(cooldown.NewStore())
	policy := cooldown.Policy{Scope: cooldown.ScopeGuild, Duration: 900 * time.Second}

	require.True(t, gate.CheckAndMaybeStart("help", policy, t0).Allowed)

	denied := gate.CheckAndMaybeStart("help", policy, t0.Add(500*time.Second))
	require.False(t, denied.Allowed)
	require.Equal(t, 400*time.Second, denied.Remaining)
	require.Equal(t, "6m 40s", denied.FormatRemaining())

	require.True(t, gate.CheckAndMaybeStart("help", policy, t0.Add(901*time.Second)).Allowed)
}

func TestGate_ConcurrentFreshKey(t *testing.T) {
	gate := cooldown.NewGate(cooldown.NewStore())
	policy := cooldown.Policy{Scope: cooldown.ScopeUser, Duration: time.Hour}

	const n = 64
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
		denied  int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			d := gate.CheckAndMaybeStart("fresh", policy, time.Now())
			mu.Lock()
			defer mu.Unlock()
			if d.Allowed {
				allowed++
			} else {
				denied++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, allowed)
	require.Equal(t, n-1, denied)
}

func TestDecision_FormatRemaining(t *testing.T) {
	tests := []struct {
		remaining time.Duration
		want      string
	}{
		{0, "0m 0s"},
		{59 * time.Second, "0m 59s"},
		{61*time.Second + 900*time.Millisecond, "1m 1s"},
		{15 * time.Minute, "15m 0s"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, cooldown.Decision{Remaining: tt.remaining}.FormatRemaining())
		})
	}
}

func TestPolicy_Key(t *testing.T) {
	tests := []struct {
		scope cooldown.Scope
		want  string
	}{
		{cooldown.ScopeUser, "help:user:u1"},
		{cooldown.ScopeGuild, "help:guild:g1"},
		{cooldown.ScopeChannel, "help:channel:c1"},
	}
	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			p := cooldown.Policy{Scope: tt.scope}
			require.Equal(t, tt.want, p.Key("help", "u1", "g1", "c1"))
		})
	}
}

func TestParseScope(t *testing.T) {
	s, err := cooldown.ParseScope("")
	require.NoError(t, err)
	require.Equal(t, cooldown.ScopeUser, s)

	s, err = cooldown.ParseScope("guild")
	require.NoError(t, err)
	require.Equal(t, cooldown.ScopeGuild, s)

	_, err = cooldown.ParseScope("planet")
	require.Error(t, err)
}
