package checker

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mxprobe/mxprobe/internal/core"
)

// Validation defaults.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultSMTPPort = 25
)

var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var errNoMXRecords = errors.New("no mx records")

// Gate blocks until a network probe for domain is allowed.
type Gate interface {
	Acquire(domain string)
}

// MXResolver looks up mail exchangers. *net.Resolver satisfies it.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Dialer opens transport connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Validator verifies one address: syntax, then MX lookup, then a TCP connect
// to port 25 of the first MX host. Both network stages pass through Gate.
//
// The connect stage never speaks SMTP. A reachable result means a mail
// server accepted a connection, not that the mailbox exists.
type Validator struct {
	Gate     Gate
	Resolver MXResolver
	Dialer   Dialer
	Timeout  time.Duration
	SMTPPort int
	Clock    func() time.Time
}

// Validate returns the result for address. It never fails; every problem is
// recorded on the result.
func (v *Validator) Validate(ctx context.Context, address string) *core.CheckResult {
	if ctx == nil {
		ctx = context.Background()
	}
	started := v.now()

	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return v.finish(&core.CheckResult{
			Address:       trimmed,
			FailureKind:   core.FailureInput,
			FailureReason: core.ReasonEmptyAddress,
		}, started)
	}

	result := &core.CheckResult{Address: strings.ToLower(trimmed)}
	if !addressPattern.MatchString(result.Address) {
		result.FailureKind = core.FailureInput
		result.FailureReason = core.ReasonInvalidFormat
		return v.finish(result, started)
	}
	result.SyntaxValid = true

	domain := result.Address[strings.LastIndex(result.Address, "@")+1:]

	v.acquire(domain)
	hosts, err := v.lookupMX(ctx, domain)
	if err != nil {
		result.FailureKind = core.FailureResolution
		result.FailureReason = core.ReasonDNSPrefix + err.Error()
		return v.finish(result, started)
	}
	result.HasMX = true
	result.MXHosts = hosts

	v.acquire(domain)
	if err := v.connect(ctx, hosts[0]); err != nil {
		result.FailureKind = core.FailureConnect
		result.FailureReason = core.ReasonSMTPPrefix + err.Error()
		return v.finish(result, started)
	}
	result.SMTPReachable = true
	result.OverallValid = true
	return v.finish(result, started)
}

func (v *Validator) lookupMX(ctx context.Context, domain string) ([]string, error) {
	if v.Resolver == nil {
		return nil, errors.New("resolver is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout())
	defer cancel()

	records, err := v.Resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}

	hosts := make([]string, 0, len(records))
	for _, record := range records {
		if record == nil {
			continue
		}
		// A null MX (".") trims to nothing and is not a usable host.
		host := strings.TrimSuffix(strings.TrimSpace(record.Host), ".")
		if host == "" {
			continue
		}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		return nil, errNoMXRecords
	}
	return hosts, nil
}

func (v *Validator) connect(ctx context.Context, host string) error {
	timeout := v.timeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := v.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: timeout}
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(v.port())))
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func (v *Validator) acquire(domain string) {
	if v.Gate != nil {
		v.Gate.Acquire(domain)
	}
}

func (v *Validator) finish(result *core.CheckResult, started time.Time) *core.CheckResult {
	now := v.now()
	elapsed := now.Sub(started).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	result.ElapsedMillis = elapsed
	result.CheckedAt = now.UTC()
	return result
}

func (v *Validator) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return DefaultTimeout
}

func (v *Validator) port() int {
	if v.SMTPPort > 0 {
		return v.SMTPPort
	}
	return DefaultSMTPPort
}

func (v *Validator) now() time.Time {
	if v.Clock != nil {
		return v.Clock()
	}
	return time.Now()
}
