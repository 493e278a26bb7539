package engine

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
)

// fakeClock advances only when the limiter sleeps or the test says so.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(clock *fakeClock, catalog *provider.Catalog) *RateLimiter {
	limiter := NewRateLimiter(catalog, 300*time.Millisecond, 100*time.Millisecond)
	limiter.Clock = clock.Now
	limiter.Sleep = clock.Sleep
	return limiter
}

func TestRateLimiterFirstGrantIsImmediate(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	limiter := newTestLimiter(clock, nil)

	grant := limiter.acquire("Example.COM")
	require.Equal(t, "example.com", grant.Domain)
	require.Equal(t, "example.com", grant.Provider)
	require.Equal(t, start, grant.GrantedAt)
	require.Zero(t, grant.Waited())
	require.Empty(t, clock.slept)
}

func TestRateLimiterSameDomainSpacing(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, nil)

	var grants []time.Time
	for i := 0; i < 6; i++ {
		grants = append(grants, limiter.acquire("example.com").GrantedAt)
		if i%2 == 0 {
			clock.Advance(50 * time.Millisecond)
		}
	}

	for i := 1; i < len(grants); i++ {
		require.GreaterOrEqual(t, grants[i].Sub(grants[i-1]), 300*time.Millisecond)
	}
}

func TestRateLimiterSequentialRecheck(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	catalog := provider.New(provider.Overrides{
		Intervals: map[string]time.Duration{"slow.example": 500 * time.Millisecond},
	})
	limiter := newTestLimiter(clock, catalog)

	limiter.acquire("slow.example")
	grant := limiter.acquire("slow.example")

	// The provider wait is measured after the domain sleep, so it only
	// covers the remaining 200ms rather than the full 500ms. The global
	// interval has long passed by then.
	require.Equal(t, 300*time.Millisecond, grant.DomainWait)
	require.Equal(t, 200*time.Millisecond, grant.ProviderWait)
	require.Zero(t, grant.GlobalWait)
	require.Equal(t, []time.Duration{300 * time.Millisecond, 200 * time.Millisecond}, clock.slept)
	require.Equal(t, start.Add(500*time.Millisecond), grant.GrantedAt)
}

func TestRateLimiterCommitsPostSleepTimeToAllScopes(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, nil)

	limiter.acquire("gmail.com")
	second := limiter.acquire("gmail.com")

	// googlemail.com shares the google provider. Its domain is new, so only
	// the provider stamp written by the previous grant applies.
	third := limiter.acquire("googlemail.com")
	require.Zero(t, third.DomainWait)
	require.Equal(t, 300*time.Millisecond, third.ProviderWait)
	require.Equal(t, second.GrantedAt.Add(300*time.Millisecond), third.GrantedAt)
}

func TestRateLimiterDistinctProvidersShareOnlyGlobal(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	limiter := newTestLimiter(clock, nil)

	first := limiter.acquire("gmail.com")
	second := limiter.acquire("hotmail.com")
	require.Equal(t, "google", first.Provider)
	require.Equal(t, "microsoft", second.Provider)

	require.Zero(t, second.DomainWait)
	require.Zero(t, second.ProviderWait)
	require.Equal(t, 100*time.Millisecond, second.GlobalWait)
	require.Equal(t, start.Add(100*time.Millisecond), second.GrantedAt)

	// gmail.com is 100ms past its last grant: the domain wait covers the
	// remaining 200ms and the provider and global checks then pass.
	third := limiter.acquire("gmail.com")
	require.Equal(t, 200*time.Millisecond, third.DomainWait)
	require.Zero(t, third.ProviderWait)
	require.Zero(t, third.GlobalWait)
	require.Equal(t, start.Add(300*time.Millisecond), third.GrantedAt)
}

func TestRateLimiterNoWaitAfterIntervalsPass(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, nil)

	limiter.acquire("example.com")
	clock.Advance(time.Second)
	grant := limiter.acquire("example.com")
	require.Zero(t, grant.Waited())
	require.Empty(t, clock.slept)
}

func TestRateLimiterTracked(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(clock, nil)

	limiter.Acquire("gmail.com")
	limiter.Acquire("googlemail.com")
	limiter.Acquire("example.org")

	domains, providers := limiter.Tracked()
	require.Equal(t, 3, domains)
	require.Equal(t, 2, providers)
}

func TestRateLimiterConcurrentSameDomain(t *testing.T) {
	limiter := NewRateLimiter(provider.New(provider.Overrides{
		Intervals: map[string]time.Duration{"example.com": 10 * time.Millisecond},
	}), 20*time.Millisecond, 5*time.Millisecond)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				grant := limiter.acquire("example.com")
				mu.Lock()
				grants = append(grants, grant.GrantedAt)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, grants, 16)
	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 1; i < len(grants); i++ {
		require.GreaterOrEqual(t, grants[i].Sub(grants[i-1]), 20*time.Millisecond)
	}
}

func TestGrantWaitedSumsScopes(t *testing.T) {
	require.Zero(t, core.Grant{}.Waited())

	grant := core.Grant{
		DomainWait:   300 * time.Millisecond,
		ProviderWait: 200 * time.Millisecond,
		GlobalWait:   50 * time.Millisecond,
	}
	require.Equal(t, 550*time.Millisecond, grant.Waited())
}
