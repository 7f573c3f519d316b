package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

// ============================================================================
// Pointer Backend - capability interface + environment-driven selection
// ============================================================================
// A Backend produces pointer Samples from one specific platform facility.
// On Wayland the generic queries (X11 QueryPointer, toolkit polling) only
// return correct coordinates while the pointer is over a surface the querying
// server can see, so compositor-native escape hatches are tried first:
//
//	1. hyprland  - Hyprland IPC socket ("cursorpos")
//	2. gnome     - GNOME Shell Eval via D-Bus
//	3. kwin      - KWin scripting bridge via D-Bus
//	4. hybrid    - X11 QueryPointer fused with raw /dev/input/mice deltas
//	5. x11       - X11 QueryPointer (native X11 sessions)
//	6. toolkit   - robotgo polling; always constructible, unconditional terminus
//
// Construction smoke-tests the facility; any failure advances the chain.
// Selection therefore always returns exactly one working backend.
// ============================================================================

// Backend is the capability produced by selection. Exactly one live instance
// exists per process; it exclusively owns its OS resource until Close.
type Backend interface {
	// Query returns the current pointer sample. Internal faults degrade to a
	// best-effort (last-known or zero) sample rather than propagating, so in
	// practice the error is reserved for permanent backend death.
	Query() (Sample, error)

	// NeedsScaling reports whether coordinates are physical pixels that the
	// caller must divide by the device pixel ratio.
	NeedsScaling() bool

	// Close releases the underlying OS resource. Safe after partial
	// construction; release failures are never fatal.
	Close() error
}

const (
	backendNameHyprland = "hyprland"
	backendNameGnome    = "gnome"
	backendNameKWin     = "kwin"
	backendNameHybrid   = "hybrid"
	backendNameX11      = "x11"
	backendNameToolkit  = "toolkit"
)

// environment captures the host signals that drive backend selection.
type environment struct {
	goos        string
	wayland     bool
	hyprlandSig string
	desktop     string // upper-cased XDG_CURRENT_DESKTOP
}

// detectEnvironment probes the session from environment variables. The getenv
// indirection keeps this testable for every signal combination.
func detectEnvironment(getenv func(string) string) environment {
	return environment{
		goos: runtime.GOOS,
		wayland: getenv("WAYLAND_DISPLAY") != "" ||
			getenv("XDG_SESSION_TYPE") == "wayland",
		hyprlandSig: getenv("HYPRLAND_INSTANCE_SIGNATURE"),
		desktop:     strings.ToUpper(getenv("XDG_CURRENT_DESKTOP")),
	}
}

func (e environment) isGnome() bool {
	for _, d := range []string{"GNOME", "UBUNTU", "POP", "UNITY"} {
		if strings.Contains(e.desktop, d) {
			return true
		}
	}
	return false
}

func (e environment) isKDE() bool {
	return strings.Contains(e.desktop, "KDE") || strings.Contains(e.desktop, "PLASMA")
}

// backendCandidate pairs a name with a constructor. Constructors perform a
// synchronous smoke test and must release partial resources on failure.
type backendCandidate struct {
	name      string
	construct func() (Backend, error)
}

// backendCandidates builds the ordered fallback chain for the detected
// environment. The toolkit terminus is always last and cannot fail.
func backendCandidates(env environment, cfg BackendConfig, logger *slog.Logger) []backendCandidate {
	all := map[string]backendCandidate{
		backendNameHyprland: {backendNameHyprland, func() (Backend, error) {
			return newHyprlandBackend(env.hyprlandSig)
		}},
		backendNameGnome: {backendNameGnome, func() (Backend, error) {
			return newGnomeBackend()
		}},
		backendNameKWin: {backendNameKWin, func() (Backend, error) {
			return newKWinBackend(logger)
		}},
		backendNameHybrid: {backendNameHybrid, func() (Backend, error) {
			return newHybridBackend(cfg.MiceDevice)
		}},
		backendNameX11: {backendNameX11, func() (Backend, error) {
			return newX11Backend()
		}},
		backendNameToolkit: {backendNameToolkit, func() (Backend, error) {
			return newToolkitBackend(logger), nil
		}},
	}

	// A forced backend still falls back to the toolkit terminus so the daemon
	// never starts without a pointer source.
	if cfg.Force != "" {
		cands := []backendCandidate{all[cfg.Force]}
		if cfg.Force != backendNameToolkit {
			cands = append(cands, all[backendNameToolkit])
		}
		return cands
	}

	var cands []backendCandidate
	if env.goos == "linux" {
		if env.wayland {
			if env.hyprlandSig != "" {
				cands = append(cands, all[backendNameHyprland])
			}
			if env.isGnome() {
				cands = append(cands, all[backendNameGnome])
			}
			if env.isKDE() {
				cands = append(cands, all[backendNameKWin])
			}
			// Remaining Wayland compositors: extrapolate over native surfaces
			// from raw deltas. Needs read access to the mice device.
			cands = append(cands, all[backendNameHybrid])
		}
		cands = append(cands, all[backendNameX11])
	}
	cands = append(cands, all[backendNameToolkit])
	return cands
}

// selectBackend walks the chain until a constructor succeeds. The chain is
// guaranteed to terminate: the toolkit candidate never errors.
func selectBackend(cands []backendCandidate, logger *slog.Logger) Backend {
	for _, c := range cands {
		b, err := c.construct()
		if err != nil {
			logger.Info("pointer backend unavailable", "backend", c.name, "error", err)
			continue
		}
		logger.Info("pointer backend selected", "backend", c.name, "needs_scaling", b.NeedsScaling())
		return b
	}
	// Unreachable when the chain is built by backendCandidates, kept so a
	// hand-built chain misses loudly instead of returning nil.
	panic(fmt.Sprintf("no backend constructible out of %d candidates", len(cands)))
}
