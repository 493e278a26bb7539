package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/core/provider"
	"github.com/mxprobe/mxprobe/internal/metrics"
)

// Default probe spacing.
const (
	DefaultDomainInterval = 300 * time.Millisecond
	DefaultGlobalInterval = 100 * time.Millisecond
)

// RateLimiter spaces network probes per domain, per provider and globally.
// It owns all limiter timing state; nothing else reads or writes it.
//
// Acquire evaluates the scopes one after another under a single lock,
// sleeping as needed and re-reading the clock after every sleep. The grant
// time written to all three scopes is the clock after the last sleep.
// Holding the lock while sleeping serializes every gate request. Stamps are
// never evicted; a limiter lives for one batch.
type RateLimiter struct {
	Catalog        *provider.Catalog
	DomainInterval time.Duration
	GlobalInterval time.Duration
	Clock          func() time.Time
	Sleep          func(time.Duration)

	mu             sync.Mutex
	lastByDomain   map[string]time.Time
	lastByProvider map[provider.Key]time.Time
	lastGlobal     time.Time
	granted        bool
}

// NewRateLimiter returns a limiter using catalog for provider intervals.
func NewRateLimiter(catalog *provider.Catalog, domainInterval, globalInterval time.Duration) *RateLimiter {
	if catalog == nil {
		catalog = provider.Default()
	}
	return &RateLimiter{
		Catalog:        catalog,
		DomainInterval: domainInterval,
		GlobalInterval: globalInterval,
	}
}

// Acquire blocks until a probe for domain satisfies the domain, provider
// and global intervals, then records the grant. It cannot fail.
func (r *RateLimiter) Acquire(domain string) {
	r.acquire(domain)
}

func (r *RateLimiter) acquire(domain string) core.Grant {
	domain = strings.ToLower(strings.TrimSpace(domain))

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lastByDomain == nil {
		r.lastByDomain = make(map[string]time.Time)
		r.lastByProvider = make(map[provider.Key]time.Time)
	}

	key := r.Catalog.Resolve(domain)
	grant := core.Grant{
		Domain:   domain,
		Provider: string(key),
	}

	if last, ok := r.lastByDomain[domain]; ok {
		grant.DomainWait = r.waitFor(core.ScopeDomain, last, r.DomainInterval)
	}
	if last, ok := r.lastByProvider[key]; ok {
		grant.ProviderWait = r.waitFor(core.ScopeProvider, last, r.Catalog.Interval(key))
	}
	if r.granted {
		grant.GlobalWait = r.waitFor(core.ScopeGlobal, r.lastGlobal, r.GlobalInterval)
	}

	now := r.now()
	r.lastByDomain[domain] = now
	r.lastByProvider[key] = now
	r.lastGlobal = now
	r.granted = true

	grant.GrantedAt = now
	return grant
}

// waitFor sleeps until interval has passed since last, measured against the
// current clock, and returns the time slept.
func (r *RateLimiter) waitFor(scope string, last time.Time, interval time.Duration) time.Duration {
	wait := interval - r.now().Sub(last)
	if wait <= 0 {
		return 0
	}
	r.sleep(wait)
	metrics.RecordGateWait(scope, wait)
	return wait
}

// Tracked returns how many domains and providers have been granted a probe.
func (r *RateLimiter) Tracked() (domains int, providers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lastByDomain), len(r.lastByProvider)
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now()
}

func (r *RateLimiter) sleep(d time.Duration) {
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}
