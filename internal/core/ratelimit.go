package core

import "time"

// Gate scopes, in the order the rate limiter evaluates them.
const (
	ScopeDomain   = "domain"
	ScopeProvider = "provider"
	ScopeGlobal   = "global"
)

// Grant records one permitted connection and the time slept in each scope.
type Grant struct {
	Domain       string
	Provider     string
	GrantedAt    time.Time
	DomainWait   time.Duration
	ProviderWait time.Duration
	GlobalWait   time.Duration
}

// Waited returns the total time slept before the grant.
func (g Grant) Waited() time.Duration {
	return g.DomainWait + g.ProviderWait + g.GlobalWait
}
