// Package dns resolves the names a printer is published under, using reverse
// (PTR) lookups against the system resolver or configured servers.
package dns

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

// newResolver returns the system resolver, or one pinned to the first configured server.
func newResolver(settings datamodel.DNSSettings, timeout time.Duration) *net.Resolver {
	if len(settings.Servers) == 0 {
		return net.DefaultResolver
	}

	serverAddr := settings.Servers[0]
	if _, _, err := net.SplitHostPort(serverAddr); err != nil {
		serverAddr = net.JoinHostPort(serverAddr, "53")
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, serverAddr)
		},
	}
}

// ReverseLookup returns the PTR names for ip with the trailing dot removed.
func ReverseLookup(ctx context.Context, ip string, settings datamodel.DNSSettings) ([]string, error) {
	timeout := time.Duration(settings.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	names, err := newResolver(settings, timeout).LookupAddr(ctx, ip)
	if err != nil {
		return nil, fmt.Errorf("reverse lookup for %s failed: %w", ip, err)
	}

	hostnames := make([]string, 0, len(names))
	for _, name := range names {
		// PTR records often end with a dot, trim it for consistency
		if name = strings.TrimSuffix(name, "."); name != "" {
			hostnames = append(hostnames, name)
		}
	}
	logger.WithModule("dns").Debug("Reverse lookup completed", "ip", ip, "names", hostnames)
	return hostnames, nil
}
