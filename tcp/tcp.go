// Package tcp performs the reachability check behind printer discovery: a
// plain TCP connect to (host, port) with a per-attempt timeout.
package tcp

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/lukeod/netprint/logger"
)

// Prober dials a single TCP port and reports whether the connection completed.
type Prober struct {
	Timeout time.Duration
	dialer  func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProber returns a Prober with the given per-attempt timeout.
func NewProber(timeout time.Duration) *Prober {
	d := &net.Dialer{Timeout: timeout}
	return &Prober{
		Timeout: timeout,
		dialer:  d.DialContext,
	}
}

// Probe attempts a connection and closes it immediately. Timeouts, refusals
// and cancellation of ctx all count as unreachable.
func (p *Prober) Probe(ctx context.Context, host string, port int) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	startTime := time.Now()
	conn, err := p.dialer(ctx, "tcp", addr)
	if err != nil {
		if logger.IsDebugEnabled() {
			logger.Debug("Port closed/filtered", "addr", addr, "error", err)
		}
		return false
	}
	conn.Close()

	logger.Debug("Port open", "addr", addr, "service", ServiceName(port), "rtt", time.Since(startTime))
	return true
}

// ServiceName returns a common service name for printing-related ports
func ServiceName(port int) string {
	printingPorts := map[int]string{
		80:   "HTTP",
		443:  "HTTPS",
		515:  "LPD",
		631:  "IPP",
		8000: "HTTP-Alt",
		8080: "HTTP-Proxy",
		9100: "JetDirect",
	}

	if service, ok := printingPorts[port]; ok {
		return service
	}
	return "unknown"
}
