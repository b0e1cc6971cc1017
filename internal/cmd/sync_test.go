package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"pkgsync/internal/backend"
	"pkgsync/internal/config"
	"pkgsync/internal/inventory"
	"pkgsync/internal/registry"
	"pkgsync/internal/update"
)

// fakeHandle is an in-memory backend whose installs/removes mutate state.
type fakeHandle struct {
	kind      backend.Kind
	available bool
	installed inventory.Set

	// upgrade is the scripted bulk-upgrade outcome; zero value is Success.
	upgrade      backend.Outcome
	installCalls []string
	removeCalls  []string
	upgradeCalls int
}

func (f *fakeHandle) Kind() backend.Kind { return f.kind }
func (f *fakeHandle) Available() bool    { return f.available }

func (f *fakeHandle) ListInstalled() []string { return f.installed.Sorted() }

func (f *fakeHandle) Install(pkg string) bool {
	f.installCalls = append(f.installCalls, pkg)
	f.installed[pkg] = true
	return true
}

func (f *fakeHandle) Remove(pkg string) bool {
	f.removeCalls = append(f.removeCalls, pkg)
	delete(f.installed, pkg)
	return true
}

func (f *fakeHandle) Upgrade(context.Context, time.Duration) backend.Outcome {
	f.upgradeCalls++
	return f.upgrade
}

// patchProbe scripts the update orchestrator's connectivity probe so update
// passes never touch the network.
func patchProbe(t *testing.T, reachable bool, latencyMs float64) {
	t.Helper()
	orig := newOrchestrator
	newOrchestrator = func(ups []update.Upgrader, hosts []string) *update.Orchestrator {
		o := update.New(ups, hosts)
		o.Probe = func([]string) (bool, float64) { return reachable, latencyMs }
		return o
	}
	t.Cleanup(func() { newOrchestrator = orig })
}

// syncEnv isolates settings and registry in a temp home and installs fakes.
func syncEnv(t *testing.T, fakes ...*fakeHandle) *registry.Store {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	regPath := filepath.Join(t.TempDir(), "registry.json")
	t.Setenv(registry.EnvPath, regPath)

	orig := loadBackends
	loadBackends = func(*config.Settings) ([]backendHandle, error) {
		handles := make([]backendHandle, len(fakes))
		for i, f := range fakes {
			handles[i] = f
		}
		return handles, nil
	}
	t.Cleanup(func() { loadBackends = orig })
	return registry.NewStore(regPath)
}

func TestSync_FirstMachineBecomesPrimary(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git", "vim")}
	store := syncEnv(t, brew)

	if err := Sync(SyncOptions{Machine: "laptop"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reg.PrimaryMachine != "laptop" {
		t.Errorf("PrimaryMachine = %q, want laptop", reg.PrimaryMachine)
	}
	rec, ok := reg.Machines["laptop"]
	if !ok {
		t.Fatal("laptop record missing")
	}
	if !reflect.DeepEqual(rec.Packages["brew"], []string{"git", "vim"}) {
		t.Errorf("recorded packages = %v", rec.Packages["brew"])
	}
	// An unknown machine with no primary records its snapshot without diffing.
	if len(brew.installCalls) != 0 || len(brew.removeCalls) != 0 {
		t.Error("first sync must not attempt any install/remove")
	}
}

func TestSync_SecondaryConvergesTowardPrimary(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git", "wget")}
	store := syncEnv(t, brew)

	seed := &registry.Registry{
		PrimaryMachine: "desktop",
		Machines: map[string]registry.Machine{
			"desktop": {Packages: map[string][]string{"brew": {"git", "vim"}}},
			"laptop":  {Packages: map[string][]string{"brew": {"git", "wget"}}},
		},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	if err := Sync(SyncOptions{Machine: "laptop"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(brew.installCalls, []string{"vim"}) {
		t.Errorf("install calls = %v, want [vim]", brew.installCalls)
	}
	if !reflect.DeepEqual(brew.removeCalls, []string{"wget"}) {
		t.Errorf("remove calls = %v, want [wget]", brew.removeCalls)
	}

	reg, _ := store.Load()
	if got := reg.Machines["laptop"].Packages["brew"]; !reflect.DeepEqual(got, []string{"git", "vim"}) {
		t.Errorf("post-sync record = %v, want converged [git vim]", got)
	}
	if reg.PrimaryMachine != "desktop" {
		t.Errorf("primary changed unexpectedly to %q", reg.PrimaryMachine)
	}
}

func TestSync_PrimaryMachineJustRecords(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("tmux")}
	store := syncEnv(t, brew)

	seed := &registry.Registry{
		PrimaryMachine: "desktop",
		Machines: map[string]registry.Machine{
			"desktop": {Packages: map[string][]string{"brew": {"git"}}},
		},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	if err := Sync(SyncOptions{Machine: "desktop"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(brew.installCalls) != 0 || len(brew.removeCalls) != 0 {
		t.Error("the primary never reconciles against itself")
	}
	reg, _ := store.Load()
	if got := reg.Machines["desktop"].Packages["brew"]; !reflect.DeepEqual(got, []string{"tmux"}) {
		t.Errorf("primary record = %v, want its fresh snapshot", got)
	}
}

func TestSync_ExplicitPrimaryFlagWins(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git")}
	store := syncEnv(t, brew)

	seed := &registry.Registry{
		PrimaryMachine: "desktop",
		Machines: map[string]registry.Machine{
			"desktop": {Packages: map[string][]string{"brew": {"git", "vim"}}},
			"laptop":  {Packages: map[string][]string{"brew": {"git"}}},
		},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	if err := Sync(SyncOptions{Machine: "laptop", Primary: true}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg, _ := store.Load()
	if reg.PrimaryMachine != "laptop" {
		t.Errorf("PrimaryMachine = %q, want laptop", reg.PrimaryMachine)
	}
	// Promotion forecloses reconciliation for this call.
	if len(brew.installCalls) != 0 {
		t.Error("a newly promoted primary must not reconcile")
	}
}

func TestSync_MissingPrimaryRecordPromotesLocal(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git")}
	store := syncEnv(t, brew)

	seed := &registry.Registry{
		PrimaryMachine: "ghost",
		Machines: map[string]registry.Machine{
			"laptop": {Packages: map[string][]string{"brew": {"git"}}},
		},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	if err := Sync(SyncOptions{Machine: "laptop"}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reg, _ := store.Load()
	if reg.PrimaryMachine != "laptop" {
		t.Errorf("PrimaryMachine = %q, want promoted laptop", reg.PrimaryMachine)
	}
	if len(brew.installCalls) != 0 || len(brew.removeCalls) != 0 {
		t.Error("no reconciliation is possible without a primary record")
	}
}

func TestSync_UpdateFailureReturnsErrorAfterRecording(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git"), upgrade: backend.Failure}
	store := syncEnv(t, brew)
	patchProbe(t, true, 50)

	err := Sync(SyncOptions{Machine: "laptop", Update: true}, io.Discard)
	if err == nil {
		t.Fatal("a failed update pass must surface as a non-nil error")
	}
	if brew.upgradeCalls != 1 {
		t.Errorf("upgrade calls = %d, want 1", brew.upgradeCalls)
	}

	// The sync itself still completes: the snapshot is recorded and saved.
	reg, lerr := store.Load()
	if lerr != nil {
		t.Fatal(lerr)
	}
	if _, ok := reg.Machines["laptop"]; !ok {
		t.Error("registry must still record the machine after a failed update pass")
	}
}

func TestSync_UpdateSuccessReturnsNil(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git")}
	syncEnv(t, brew)
	patchProbe(t, true, 50)

	if err := Sync(SyncOptions{Machine: "laptop", Update: true}, io.Discard); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brew.upgradeCalls != 1 {
		t.Errorf("upgrade calls = %d, want 1", brew.upgradeCalls)
	}
}

func TestSync_UnmanagedBackendsLeftOutOfPlan(t *testing.T) {
	brew := &fakeHandle{kind: backend.Brew, available: true, installed: inventory.NewSet("git")}
	store := syncEnv(t, brew)

	seed := &registry.Registry{
		PrimaryMachine: "desktop",
		Machines: map[string]registry.Machine{
			"desktop": {Packages: map[string][]string{
				"brew":    {"git", "vim"},
				"flatpak": {"org.gimp.GIMP"},
			}},
			"laptop": {Packages: map[string][]string{"brew": {"git"}}},
		},
	}
	if err := store.Save(seed); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := Sync(SyncOptions{Machine: "laptop"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(brew.installCalls, []string{"vim"}) {
		t.Errorf("install calls = %v, want [vim]", brew.installCalls)
	}
	if strings.Contains(out.String(), "flatpak package") {
		t.Error("plan must not mention backends this machine does not manage")
	}
}

func TestResolveMachine_Fallbacks(t *testing.T) {
	set := &config.Settings{Machine: "from-settings"}

	got, err := resolveMachine("explicit", set)
	if err != nil || got != "explicit" {
		t.Errorf("resolveMachine = %q, %v", got, err)
	}

	got, err = resolveMachine("", set)
	if err != nil || got != "from-settings" {
		t.Errorf("resolveMachine = %q, %v", got, err)
	}

	got, err = resolveMachine("", &config.Settings{})
	if err != nil {
		t.Fatalf("hostname fallback failed: %v", err)
	}
	if got == "" {
		t.Error("hostname fallback returned empty name")
	}
}
