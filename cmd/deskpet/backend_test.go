package main

import (
	"errors"
	"log/slog"
	"testing"
)

func fakeEnv(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDetectEnvironment(t *testing.T) {
	cases := []struct {
		name     string
		vars     map[string]string
		wayland  bool
		hyprland bool
		gnome    bool
		kde      bool
	}{
		{
			name: "bare x11",
			vars: map[string]string{"XDG_SESSION_TYPE": "x11"},
		},
		{
			name:    "wayland via display socket",
			vars:    map[string]string{"WAYLAND_DISPLAY": "wayland-1"},
			wayland: true,
		},
		{
			name:    "wayland via session type",
			vars:    map[string]string{"XDG_SESSION_TYPE": "wayland"},
			wayland: true,
		},
		{
			name: "hyprland",
			vars: map[string]string{
				"WAYLAND_DISPLAY":             "wayland-1",
				"HYPRLAND_INSTANCE_SIGNATURE": "abc123",
				"XDG_CURRENT_DESKTOP":         "Hyprland",
			},
			wayland:  true,
			hyprland: true,
		},
		{
			name: "gnome on ubuntu",
			vars: map[string]string{
				"WAYLAND_DISPLAY":     "wayland-0",
				"XDG_CURRENT_DESKTOP": "ubuntu:GNOME",
			},
			wayland: true,
			gnome:   true,
		},
		{
			name: "pop shell",
			vars: map[string]string{
				"WAYLAND_DISPLAY":     "wayland-0",
				"XDG_CURRENT_DESKTOP": "pop:GNOME",
			},
			wayland: true,
			gnome:   true,
		},
		{
			name: "kde plasma",
			vars: map[string]string{
				"WAYLAND_DISPLAY":     "wayland-0",
				"XDG_CURRENT_DESKTOP": "KDE",
			},
			wayland: true,
			kde:     true,
		},
		{
			name: "lowercase plasma",
			vars: map[string]string{
				"XDG_SESSION_TYPE":    "wayland",
				"XDG_CURRENT_DESKTOP": "plasma",
			},
			wayland: true,
			kde:     true,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := detectEnvironment(fakeEnv(c.vars))
			if env.wayland != c.wayland {
				t.Errorf("wayland = %v, want %v", env.wayland, c.wayland)
			}
			if (env.hyprlandSig != "") != c.hyprland {
				t.Errorf("hyprland sig = %q, want present=%v", env.hyprlandSig, c.hyprland)
			}
			if env.isGnome() != c.gnome {
				t.Errorf("isGnome = %v, want %v", env.isGnome(), c.gnome)
			}
			if env.isKDE() != c.kde {
				t.Errorf("isKDE = %v, want %v", env.isKDE(), c.kde)
			}
		})
	}
}

func candidateNames(cands []backendCandidate) []string {
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.name
	}
	return names
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestBackendCandidates_Order(t *testing.T) {
	logger := slog.Default()
	cfg := BackendConfig{MiceDevice: defaultMiceDevice}

	cases := []struct {
		name string
		env  environment
		want []string
	}{
		{
			name: "hyprland wayland",
			env:  environment{goos: "linux", wayland: true, hyprlandSig: "sig"},
			want: []string{"hyprland", "hybrid", "x11", "toolkit"},
		},
		{
			name: "gnome wayland",
			env:  environment{goos: "linux", wayland: true, desktop: "UBUNTU:GNOME"},
			want: []string{"gnome", "hybrid", "x11", "toolkit"},
		},
		{
			name: "kde wayland",
			env:  environment{goos: "linux", wayland: true, desktop: "KDE"},
			want: []string{"kwin", "hybrid", "x11", "toolkit"},
		},
		{
			name: "unknown wayland compositor",
			env:  environment{goos: "linux", wayland: true, desktop: "SWAY"},
			want: []string{"hybrid", "x11", "toolkit"},
		},
		{
			name: "native x11 session",
			env:  environment{goos: "linux"},
			want: []string{"x11", "toolkit"},
		},
		{
			name: "non-linux",
			env:  environment{goos: "darwin"},
			want: []string{"toolkit"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := candidateNames(backendCandidates(c.env, cfg, logger))
			if !equalNames(got, c.want) {
				t.Fatalf("chain = %v, want %v", got, c.want)
			}
		})
	}
}

func TestBackendCandidates_ForcePinsWithToolkitTerminus(t *testing.T) {
	logger := slog.Default()
	env := environment{goos: "linux", wayland: true, hyprlandSig: "sig"}

	got := candidateNames(backendCandidates(env, BackendConfig{Force: "gnome"}, logger))
	if !equalNames(got, []string{"gnome", "toolkit"}) {
		t.Fatalf("forced chain = %v, want [gnome toolkit]", got)
	}

	got = candidateNames(backendCandidates(env, BackendConfig{Force: "toolkit"}, logger))
	if !equalNames(got, []string{"toolkit"}) {
		t.Fatalf("forced toolkit chain = %v, want [toolkit]", got)
	}
}

// stubBackend is a no-op Backend for selection tests.
type stubBackend struct{ name string }

func (s *stubBackend) Query() (Sample, error) { return Sample{}, nil }
func (s *stubBackend) NeedsScaling() bool     { return false }
func (s *stubBackend) Close() error           { return nil }

func TestSelectBackend_WalksChainUntilSuccess(t *testing.T) {
	logger := slog.Default()
	var constructed []string

	cand := func(name string, fail bool) backendCandidate {
		return backendCandidate{name: name, construct: func() (Backend, error) {
			constructed = append(constructed, name)
			if fail {
				return nil, errors.New("unavailable")
			}
			return &stubBackend{name: name}, nil
		}}
	}

	b := selectBackend([]backendCandidate{
		cand("first", true),
		cand("second", true),
		cand("third", false),
		cand("never", false),
	}, logger)

	sb, ok := b.(*stubBackend)
	if !ok || sb.name != "third" {
		t.Fatalf("selected %T %+v, want stub third", b, b)
	}
	if !equalNames(constructed, []string{"first", "second", "third"}) {
		t.Fatalf("construction order = %v, want first failures then stop", constructed)
	}
}
