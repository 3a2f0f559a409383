// Package inspect gathers diagnostics for a single printer host: reverse DNS
// names, ICMP reachability and SNMP identity, queried concurrently.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/dns"
	"github.com/lukeod/netprint/icmp"
	"github.com/lukeod/netprint/logger"
	"github.com/lukeod/netprint/snmp"
)

// ErrInvalidHost is returned when the host is not an IPv4 literal.
var ErrInvalidHost = errors.New("host must be an IPv4 address")

// Probe functions, replaceable in tests
type (
	PingFunc   func(ctx context.Context, host string, settings datamodel.ICMPSettings) (*datamodel.ICMPResult, error)
	SNMPFunc   func(ctx context.Context, host string, settings datamodel.SNMPSettings) (*datamodel.SNMPResult, error)
	LookupFunc func(ctx context.Context, ip string, settings datamodel.DNSSettings) ([]string, error)
)

// Inspector runs the enabled sub-probes against one host.
type Inspector struct {
	Settings datamodel.InspectSettings
	Ping     PingFunc
	Query    SNMPFunc
	Lookup   LookupFunc
}

// NewInspector wires the inspector to the icmp, snmp and dns packages.
func NewInspector(settings datamodel.InspectSettings) *Inspector {
	return &Inspector{
		Settings: settings,
		Ping:     icmp.PerformPing,
		Query:    snmp.PerformQuery,
		Lookup:   dns.ReverseLookup,
	}
}

// Inspect validates host and runs the sub-probes. A failing sub-probe is
// recorded in Errors and never fails the call.
func (in *Inspector) Inspect(ctx context.Context, host string) (*datamodel.Inspection, error) {
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidHost, host)
	}
	host = ip.To4().String()

	log := logger.WithModule("inspect")
	log.Debug("Inspecting host", "host", host)

	result := &datamodel.Inspection{Host: host}
	var mu sync.Mutex
	record := func(probe string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", probe, err))
		log.Debug("Sub-probe failed", "host", host, "probe", probe, "error", err)
	}

	// Sub-probe goroutines never return an error so one failure cannot cancel the others
	group, gctx := errgroup.WithContext(ctx)

	if in.Settings.DNS.IsEnabled && in.Lookup != nil {
		group.Go(func() error {
			names, err := in.Lookup(gctx, host, in.Settings.DNS)
			if err != nil {
				record("dns", err)
				return nil
			}
			mu.Lock()
			result.Hostnames = names
			mu.Unlock()
			return nil
		})
	}

	if in.Settings.ICMP.IsEnabled && in.Ping != nil {
		group.Go(func() error {
			ping, err := in.Ping(gctx, host, in.Settings.ICMP)
			if err != nil {
				record("icmp", err)
			}
			mu.Lock()
			result.ICMP = ping
			mu.Unlock()
			return nil
		})
	}

	if in.Settings.SNMP.IsEnabled && in.Query != nil {
		group.Go(func() error {
			info, err := in.Query(gctx, host, in.Settings.SNMP)
			if err != nil {
				record("snmp", err)
				return nil
			}
			mu.Lock()
			result.SNMP = info
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	log.Info("Inspection completed", "host", host, "hostnames", len(result.Hostnames),
		"icmp", result.ICMP != nil, "snmp", result.SNMP != nil, "errors", len(result.Errors))
	return result, nil
}
