package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{"zero screen height", func(c *Config) { c.Display.ScreenHeight = 0 }, "screen_height"},
		{"negative pixel ratio", func(c *Config) { c.Display.PixelRatio = -1 }, "pixel_ratio"},
		{"huge tick", func(c *Config) { c.Display.TickIntervalMS = 5000 }, "tick_interval_ms"},
		{"unknown forced backend", func(c *Config) { c.Backend.Force = "wayland" }, "backend.force"},
		{"empty mice device", func(c *Config) { c.Backend.MiceDevice = "" }, "mice_device"},
		{"inverted hysteresis", func(c *Config) { c.Pet.FarDistance = c.Pet.NearDistance }, "near_distance"},
		{"inverted idle thresholds", func(c *Config) { c.Pet.MouseIdleT2MS = c.Pet.MouseIdleT1MS }, "mouse_idle_t1_ms"},
		{"no idle animations", func(c *Config) { c.Pet.IdleAnimations = nil }, "idle_animations"},
		{"special not in list", func(c *Config) { c.Pet.SpecialIdleAnimation = "nope" }, "special_idle_animation"},
		{"bad ws port", func(c *Config) { c.StateWS.Port = 70000 }, "state_ws.port"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := DefaultConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), c.errPart) {
				t.Fatalf("error %q does not mention %q", err, c.errPart)
			}
		})
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deskpet.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfigFileMergesOverDefaults(t *testing.T) {
	path := writeTempConfig(t, `
display:
  screen_height: 1440
  pixel_ratio: 2.0
pet:
  move_speed: 6.5
backend:
  force: hybrid
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Display.ScreenHeight != 1440 || cfg.Display.PixelRatio != 2.0 {
		t.Fatalf("display = %+v, want overrides applied", cfg.Display)
	}
	if cfg.Pet.MoveSpeed != 6.5 {
		t.Fatalf("move_speed = %v, want 6.5", cfg.Pet.MoveSpeed)
	}
	if cfg.Backend.Force != "hybrid" {
		t.Fatalf("force = %q, want hybrid", cfg.Backend.Force)
	}

	// Fields the file does not mention keep their defaults.
	if cfg.Display.TickIntervalMS != defaultTickIntervalMS {
		t.Fatalf("tick = %d, want default %d", cfg.Display.TickIntervalMS, defaultTickIntervalMS)
	}
	if cfg.StateWS.Port != defaultStateWSPort {
		t.Fatalf("ws port = %d, want default %d", cfg.StateWS.Port, defaultStateWSPort)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("merged config invalid: %v", err)
	}
}

func TestLoadConfigFileRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
display:
  screen_hieght: 1440
`)
	if _, err := LoadConfigFile(path); err == nil {
		t.Fatalf("expected error for misspelled field")
	}
}

func TestFlagOverridesApplyOnlySetValues(t *testing.T) {
	cfg := DefaultConfig()

	port := 4000
	force := "x11"
	FlagOverrides{StateWSPort: &port, BackendForce: &force}.Apply(&cfg)

	if cfg.StateWS.Port != 4000 {
		t.Fatalf("port = %d, want 4000", cfg.StateWS.Port)
	}
	if cfg.Backend.Force != "x11" {
		t.Fatalf("force = %q, want x11", cfg.Backend.Force)
	}
	// Untouched overrides leave defaults alone.
	if cfg.Display.ScreenHeight != referenceScreenHeight {
		t.Fatalf("screen height = %d, want default", cfg.Display.ScreenHeight)
	}
}

func TestTunablesAdaptToScreenScalesVisualsOnly(t *testing.T) {
	cfg := DefaultConfig()
	base := cfg.Tunables()
	scaled := base.AdaptToScreen(640) // half the reference height

	if scaled.MoveSpeed != base.MoveSpeed/2 {
		t.Errorf("MoveSpeed = %v, want %v", scaled.MoveSpeed, base.MoveSpeed/2)
	}
	if scaled.NearDistance != base.NearDistance/2 || scaled.FarDistance != base.FarDistance/2 {
		t.Errorf("distances = (%v, %v), want halved", scaled.NearDistance, scaled.FarDistance)
	}
	if scaled.WanderRadius != base.WanderRadius/2 || scaled.SealWanderRadius != base.SealWanderRadius/2 {
		t.Errorf("radii = (%v, %v), want halved", scaled.WanderRadius, scaled.SealWanderRadius)
	}
	if scaled.MouseMoveThreshold != base.MouseMoveThreshold/2 {
		t.Errorf("threshold = %v, want halved", scaled.MouseMoveThreshold)
	}

	// Durations are wall-clock: never scaled.
	if scaled.WanderDurationMin != base.WanderDurationMin ||
		scaled.IdleMinDuration != base.IdleMinDuration ||
		scaled.MouseIdleT1 != base.MouseIdleT1 ||
		scaled.MouseIdleT2 != base.MouseIdleT2 ||
		scaled.IdleRampDuration != base.IdleRampDuration {
		t.Errorf("durations changed under scaling: %+v", scaled)
	}

	// Reference height is the identity.
	same := base.AdaptToScreen(referenceScreenHeight)
	if same.MoveSpeed != base.MoveSpeed || same.NearDistance != base.NearDistance {
		t.Errorf("reference height scaling changed values: %+v", same)
	}
}

func TestTunablesCopiesAnimationList(t *testing.T) {
	cfg := DefaultConfig()
	tun := cfg.Tunables()
	tun.IdleAnimations[0] = "mutated"
	if cfg.Pet.IdleAnimations[0] == "mutated" {
		t.Fatalf("Tunables shares the animation slice with the config")
	}
}
