// Package scanner handles the orchestration of printer discovery: it sweeps
// every /24 the host is attached to and probes each address for a printing port.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
	"github.com/lukeod/netprint/tcp"
)

// ErrInterfaceEnumeration is returned when the local interface table cannot be read.
var ErrInterfaceEnumeration = errors.New("failed to enumerate network interfaces")

// DefaultGlobalTimeout bounds a run when the Engine has no explicit budget.
const DefaultGlobalTimeout = 5 * time.Second

// InterfaceLister returns a snapshot of the local IPv4 interface addresses.
type InterfaceLister func() ([]datamodel.InterfaceAddress, error)

// Prober checks whether a single (host, port) accepts connections.
type Prober interface {
	Probe(ctx context.Context, host string, port int) bool
}

// Engine is the core orchestrator of a discovery run. It holds no state
// between runs; every call rescans the network.
type Engine struct {
	Ports         []int
	GlobalTimeout time.Duration
	Interfaces    InterfaceLister
	Prober        Prober
}

// NewEngine creates an Engine wired to the system interface table and a TCP prober.
func NewEngine(settings datamodel.DiscoverySettings) *Engine {
	return &Engine{
		Ports:         settings.Ports,
		GlobalTimeout: time.Duration(settings.GlobalTimeoutMS) * time.Millisecond,
		Interfaces:    SystemInterfaces,
		Prober:        tcp.NewProber(time.Duration(settings.ProbeTimeoutMS) * time.Millisecond),
	}
}

// Discover sweeps all local subnets and returns the reachable printer endpoints.
func (e *Engine) Discover(ctx context.Context) ([]datamodel.PrinterEndpoint, error) {
	return e.DiscoverFunc(ctx, nil)
}

// DiscoverFunc is Discover with a callback invoked once per new endpoint as it
// is found. The callback runs on the aggregating goroutine and must not block for long.
func (e *Engine) DiscoverFunc(ctx context.Context, onFound func(datamodel.PrinterEndpoint)) ([]datamodel.PrinterEndpoint, error) {
	log := logger.WithModule("scanner")

	addrs, err := e.Interfaces()
	if err != nil {
		log.Error("Failed to read interface table", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInterfaceEnumeration, err)
	}

	subnets := externalSubnets(addrs)
	printers := make([]datamodel.PrinterEndpoint, 0)
	if len(subnets) == 0 {
		log.Info("No external IPv4 addresses, nothing to scan")
		return printers, nil
	}

	targets := probeTargets(subnets, e.Ports)
	log.Info("Starting printer discovery", "subnets", subnets, "ports", e.Ports, "probes", len(targets))
	startTime := time.Now()

	budget := e.GlobalTimeout
	if budget <= 0 {
		budget = DefaultGlobalTimeout
	}

	// Cancelling at the deadline also aborts dials still in flight
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	// Unbuffered: once the aggregator stops receiving, late probes can only
	// observe ctx.Done() and drop their result.
	found := make(chan datamodel.ProbeTarget)
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target datamodel.ProbeTarget) {
			defer wg.Done()
			if !e.Prober.Probe(ctx, target.Host, target.Port) {
				return
			}
			select {
			case found <- target:
			case <-ctx.Done():
			}
		}(target)
	}

	go func() {
		wg.Wait()
		close(found)
	}()

	seen := make(map[string]bool)
	for {
		select {
		case target, ok := <-found:
			if !ok {
				log.Info("Discovery completed", "found", len(printers), "duration", time.Since(startTime))
				return printers, nil
			}
			if seen[target.Key()] {
				continue
			}
			seen[target.Key()] = true

			endpoint := datamodel.NewPrinterEndpoint(target.Host, target.Port)
			log.Debug("Printer found", "host", target.Host, "port", target.Port)
			printers = append(printers, endpoint)
			if onFound != nil {
				onFound(endpoint)
			}

		case <-ctx.Done():
			log.Info("Discovery deadline reached, returning partial results",
				"found", len(printers), "duration", time.Since(startTime), "reason", ctx.Err())
			return printers, nil
		}
	}
}
