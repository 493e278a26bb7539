package checker

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultNameservers are queried when no nameservers are configured.
var DefaultNameservers = []string{"8.8.8.8", "1.1.1.1"}

// NewPublicResolver returns a pure-Go resolver that sends every query to the
// given nameservers in turn instead of the system configuration.
func NewPublicResolver(nameservers []string, timeout time.Duration) *net.Resolver {
	servers := normalizeNameservers(nameservers)
	if len(servers) == 0 {
		servers = normalizeNameservers(DefaultNameservers)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var next uint32
	dialer := &net.Dialer{Timeout: timeout}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			server := servers[int(atomic.AddUint32(&next, 1)-1)%len(servers)]
			return dialer.DialContext(ctx, network, server)
		},
	}
}

func normalizeNameservers(nameservers []string) []string {
	out := make([]string, 0, len(nameservers))
	for _, server := range nameservers {
		server = strings.TrimSpace(server)
		if server == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		out = append(out, server)
	}
	return out
}
