package backend

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Patchable for tests.
var (
	runCommand = func(ctx context.Context, argv []string) ([]byte, error) {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		return cmd.CombinedOutput()
	}
	lookPath = exec.LookPath
)

// Adapter wraps one package manager behind a uniform capability surface:
// list installed, install, remove, bulk upgrade.
type Adapter struct {
	kind Kind
	cmds Commands
}

// New builds an adapter for kind, applying any non-empty override fields on
// top of the built-in command table.
func New(kind Kind, override Commands) *Adapter {
	return &Adapter{kind: kind, cmds: merge(defaultCommands(kind), override)}
}

// All returns adapters for every backend in declared order.
func All(overrides map[Kind]Commands) []*Adapter {
	adapters := make([]*Adapter, 0, len(Kinds()))
	for _, kind := range Kinds() {
		adapters = append(adapters, New(kind, overrides[kind]))
	}
	return adapters
}

func (a *Adapter) Kind() Kind { return a.kind }

// Available reports whether the backend's tool is on PATH. Absent tools are
// treated as a no-op everywhere, never as an error.
func (a *Adapter) Available() bool {
	_, err := lookPath(a.cmds.Tool)
	return err == nil
}

// ListInstalled returns the installed package identifiers. It never fails:
// an absent tool or a failing list command yields nil.
func (a *Adapter) ListInstalled() []string {
	if !a.Available() {
		return nil
	}
	out, err := runCommand(context.Background(), a.cmds.List)
	if err != nil {
		log.Debug().Str("backend", string(a.kind)).Err(err).Msg("list command failed")
		return nil
	}
	switch a.cmds.ListFormat {
	case ListFormatPipxJSON:
		return parsePipxJSON(out)
	default:
		return parseLines(out)
	}
}

// Install installs a single package, returning a success flag. A non-zero
// exit is logged with the captured output and reported as false.
func (a *Adapter) Install(pkg string) bool {
	return a.runAction("install", a.cmds.Install, pkg)
}

// Remove uninstalls a single package with the same contract as Install.
func (a *Adapter) Remove(pkg string) bool {
	return a.runAction("remove", a.cmds.Remove, pkg)
}

func (a *Adapter) runAction(op string, argv []string, pkg string) bool {
	full := append(append([]string{}, argv...), pkg)
	out, err := runCommand(context.Background(), full)
	if err != nil {
		log.Warn().
			Str("backend", string(a.kind)).
			Str("package", pkg).
			Str("output", strings.TrimSpace(string(out))).
			Err(err).
			Msgf("%s failed", op)
		return false
	}
	log.Debug().Str("backend", string(a.kind)).Str("package", pkg).Msgf("%s ok", op)
	return true
}

// Upgrade runs the backend's bulk-upgrade under a wall-clock budget. A
// budget overrun terminates the process and classifies as Timeout; any other
// non-zero exit is a Failure.
func (a *Adapter) Upgrade(ctx context.Context, timeout time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := runCommand(ctx, a.cmds.Upgrade)
	if err == nil {
		return Success
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Warn().
			Str("backend", string(a.kind)).
			Dur("timeout", timeout).
			Msg("upgrade timed out")
		return Timeout
	}
	log.Warn().
		Str("backend", string(a.kind)).
		Str("output", strings.TrimSpace(string(out))).
		Err(err).
		Msg("upgrade failed")
	return Failure
}

func parseLines(out []byte) []string {
	var pkgs []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			pkgs = append(pkgs, line)
		}
	}
	return pkgs
}

// parsePipxJSON extracts venv names from `pipx list --json` output.
func parsePipxJSON(out []byte) []string {
	var listing struct {
		Venvs map[string]json.RawMessage `json:"venvs"`
	}
	if err := json.Unmarshal(out, &listing); err != nil {
		log.Debug().Err(err).Msg("unparseable pipx listing")
		return nil
	}
	pkgs := make([]string, 0, len(listing.Venvs))
	for name := range listing.Venvs {
		pkgs = append(pkgs, name)
	}
	return pkgs
}
