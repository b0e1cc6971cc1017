// Package netprobe measures internet reachability and best-case latency by
// pinging a small set of well-known hosts.
package netprobe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultHosts are public resolvers run by three independent operators, so a
// single provider outage doesn't read as "no internet".
var DefaultHosts = []string{
	"8.8.8.8",        // Google DNS
	"1.1.1.1",        // Cloudflare DNS
	"208.67.222.222", // OpenDNS
}

// pingHost sends a single echo request with a 2s deadline and returns the
// round-trip time in milliseconds. Patchable for tests.
var pingHost = func(host string) (float64, error) {
	out, err := exec.CommandContext(context.Background(), "ping", "-c", "1", "-W", "2", host).Output()
	if err != nil {
		return 0, err
	}
	return parsePingTime(string(out))
}

// Probe pings each host once, concurrently. Reachable iff at least one host
// responded; the reported latency is the minimum across responders (the
// orchestrator wants the best available path, not the worst). Hosts that
// error, time out, or produce unparseable timings are simply excluded.
func Probe(hosts []string) (reachable bool, bestLatencyMs float64) {
	if len(hosts) == 0 {
		hosts = DefaultHosts
	}

	latencies := make([]float64, len(hosts))
	ok := make([]bool, len(hosts))

	var wg sync.WaitGroup
	for i, host := range hosts {
		wg.Add(1)
		go func(i int, host string) {
			defer wg.Done()
			ms, err := pingHost(host)
			if err != nil {
				log.Debug().Str("host", host).Err(err).Msg("ping failed")
				return
			}
			latencies[i] = ms
			ok[i] = true
		}(i, host)
	}
	wg.Wait()

	for i := range hosts {
		if !ok[i] {
			continue
		}
		if !reachable || latencies[i] < bestLatencyMs {
			bestLatencyMs = latencies[i]
		}
		reachable = true
	}
	return reachable, bestLatencyMs
}

// parsePingTime extracts the "time=X.Y ms" field from ping output.
func parsePingTime(out string) (float64, error) {
	_, rest, found := strings.Cut(out, "time=")
	if !found {
		return 0, fmt.Errorf("no time field in ping output")
	}
	field := strings.Fields(rest)
	if len(field) == 0 {
		return 0, fmt.Errorf("malformed time field in ping output")
	}
	ms, err := strconv.ParseFloat(field[0], 64)
	if err != nil {
		return 0, fmt.Errorf("malformed ping time %q: %w", field[0], err)
	}
	return ms, nil
}
