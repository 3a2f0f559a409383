// Package icmp pings a printer to check reachability below the IPP layer and
// report round-trip time.
package icmp

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/lukeod/netprint/datamodel"
	"github.com/lukeod/netprint/logger"
)

const (
	defaultCount   = 3
	defaultTimeout = 2 * time.Second
)

// PerformPing sends echo requests to host and stops at the first reply, the
// configured count, the timeout or ctx cancellation, whichever comes first.
// A non-nil result is returned even when the pinger fails.
func PerformPing(ctx context.Context, host string, settings datamodel.ICMPSettings) (*datamodel.ICMPResult, error) {
	log := logger.WithModule("icmp")

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinger for %s: %w", host, err)
	}

	pinger.Count = settings.Count
	if pinger.Count <= 0 {
		pinger.Count = defaultCount
	}
	pinger.Timeout = time.Duration(settings.TimeoutSeconds) * time.Second
	if pinger.Timeout <= 0 {
		pinger.Timeout = defaultTimeout
	}
	pinger.SetPrivileged(settings.Privileged)

	// One reply is enough to call the printer reachable
	pinger.OnRecv = func(pkt *probing.Packet) {
		log.Debug("Received ping response", "ip", pkt.IPAddr, "seq", pkt.Seq, "rtt", pkt.Rtt, "ttl", pkt.TTL)
		pinger.Stop()
	}

	log.Debug("Starting ping", "host", host, "privileged", settings.Privileged,
		"count", pinger.Count, "timeout", pinger.Timeout)

	if err := pinger.RunWithContext(ctx); err != nil {
		log.Debug("Pinger execution failed", "host", host, "error", err)
		return &datamodel.ICMPResult{
			PacketsSent:       pinger.Count,
			PacketLossPercent: 100,
		}, fmt.Errorf("ping %s failed: %w", host, err)
	}

	stats := pinger.Statistics()
	result := &datamodel.ICMPResult{
		IsReachable:       stats.PacketsRecv > 0,
		PacketsSent:       stats.PacketsSent,
		PacketsReceived:   stats.PacketsRecv,
		PacketLossPercent: stats.PacketLoss,
	}
	if result.IsReachable {
		result.RTTms = float64(stats.MinRtt.Nanoseconds()) / 1e6
	}

	log.Debug("Ping completed", "host", host, "reachable", result.IsReachable,
		"sent", result.PacketsSent, "received", result.PacketsReceived)
	return result, nil
}
