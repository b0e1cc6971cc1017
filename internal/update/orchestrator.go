// Package update orchestrates latency-aware bulk upgrades across backends,
// with a single bounded retry pass for timed-out backends.
package update

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pkgsync/internal/backend"
	"pkgsync/internal/netprobe"
)

// Latency (ms) above which a lone timed-out backend is not worth retrying.
const retryLatencyCeilingMs = 1000

// Upgrader is the adapter capability surface the orchestrator consumes.
type Upgrader interface {
	Kind() backend.Kind
	Available() bool
	Upgrade(ctx context.Context, timeout time.Duration) backend.Outcome
}

// Orchestrator sequences one bulk-upgrade pass per available backend.
type Orchestrator struct {
	Backends []Upgrader
	Hosts    []string

	// Probe is swappable for tests; defaults to netprobe.Probe.
	Probe func(hosts []string) (bool, float64)
}

func New(backends []Upgrader, hosts []string) *Orchestrator {
	return &Orchestrator{Backends: backends, Hosts: hosts, Probe: netprobe.Probe}
}

// baseTimeout scales the upgrade budget to 100x the observed round-trip
// latency, floored at 60 seconds. Poor latency usually means a congested
// link that also slows the package managers' own network calls.
func baseTimeout(latencyMs float64) time.Duration {
	d := time.Duration(latencyMs/10) * time.Second
	if d < 60*time.Second {
		d = 60 * time.Second
	}
	return d
}

// Run upgrades every backend whose tool is present and returns true iff all
// attempted upgrades ultimately succeeded. Backends that time out on the
// first pass are retried once with a tripled budget, but only when network
// conditions suggest the timeout was transient. Absent tools are skipped
// entirely. The retry decision is made only after the whole first pass has
// completed.
func (o *Orchestrator) Run(ctx context.Context, stdout io.Writer) bool {
	fmt.Fprintln(stdout, "Checking internet connectivity...")
	reachable, latency := o.Probe(o.Hosts)
	if !reachable {
		fmt.Fprintln(stdout, "No internet connectivity detected; skipping package updates.")
		log.Error().Msg("connectivity probe found no reachable host")
		return false
	}
	fmt.Fprintf(stdout, "Internet connection detected (latency: %.1fms)\n", latency)

	base := baseTimeout(latency)
	retry := base * 3
	log.Debug().Dur("base_timeout", base).Dur("retry_timeout", retry).Msg("update budgets")

	// First pass.
	results := map[backend.Kind]bool{}
	var timedOut []Upgrader
	for _, b := range o.Backends {
		if !b.Available() {
			continue
		}
		fmt.Fprintf(stdout, "\nUpdating %s packages...\n", b.Kind())
		switch b.Upgrade(ctx, base) {
		case backend.Success:
			results[b.Kind()] = true
		case backend.Failure:
			results[b.Kind()] = false
		case backend.Timeout:
			timedOut = append(timedOut, b)
		}
	}

	if len(timedOut) > 0 {
		if !o.retryPass(ctx, stdout, timedOut, results, latency, retry) {
			return false
		}
	}

	failed := failedKinds(results)
	if len(failed) > 0 {
		fmt.Fprintf(stdout, "\nUpdate summary:\nFailed updates: %s\n", strings.Join(failed, ", "))
		fmt.Fprintln(stdout, "You may want to update these package managers manually.")
		return false
	}
	fmt.Fprintln(stdout, "\nAll attempted package updates succeeded.")
	return true
}

// retryPass re-checks connectivity and retries timed-out backends with the
// extended budget when conditions allow. Returns false only when the
// connection was lost entirely, which aborts the run.
func (o *Orchestrator) retryPass(ctx context.Context, stdout io.Writer, timedOut []Upgrader, results map[backend.Kind]bool, firstLatency float64, retryTimeout time.Duration) bool {
	fmt.Fprintln(stdout, "\nChecking internet connection before retrying...")
	reachable, newLatency := o.Probe(o.Hosts)
	if !reachable {
		fmt.Fprintln(stdout, "Internet connection lost during updates; remaining updates cancelled.")
		log.Error().Msg("connection lost before retry pass")
		return false
	}
	if newLatency > firstLatency*2 {
		log.Warn().
			Float64("initial_ms", firstLatency).
			Float64("current_ms", newLatency).
			Msg("network latency increased significantly")
	}

	anySucceeded := false
	for _, ok := range results {
		if ok {
			anySucceeded = true
			break
		}
	}

	// Retry only when something already succeeded (the link is workable) or
	// the fresh latency is reasonable; otherwise record the timeouts as
	// failures and move on.
	if !anySucceeded && newLatency >= retryLatencyCeilingMs {
		fmt.Fprintln(stdout, "Network conditions too poor to retry updates.")
		for _, b := range timedOut {
			results[b.Kind()] = false
		}
		return true
	}

	fmt.Fprintln(stdout, "Retrying timed out updates with extended timeout...")
	for _, b := range timedOut {
		fmt.Fprintf(stdout, "\nUpdating %s packages...\n", b.Kind())
		results[b.Kind()] = b.Upgrade(ctx, retryTimeout) == backend.Success
	}
	return true
}

// failedKinds lists failed backends in declared order for stable summaries.
func failedKinds(results map[backend.Kind]bool) []string {
	var failed []string
	for _, kind := range backend.Kinds() {
		if ok, attempted := results[kind]; attempted && !ok {
			failed = append(failed, string(kind))
		}
	}
	return failed
}
