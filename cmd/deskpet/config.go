package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the deskpet daemon.
//
// The config file is the primary configuration surface; flags exist for small
// overrides and for environments where a file is awkward. Defaults and
// validation are centralized here so the rest of the code can assume a
// well-formed config.
type Config struct {
	// Display geometry and tick cadence
	Display DisplayConfig `yaml:"display"`

	// Pointer backend selection and device paths
	Backend BackendConfig `yaml:"backend"`

	// Pet behavior tunables
	Pet PetFileConfig `yaml:"pet"`

	// IPC configuration (used by petctl and renderer integrations)
	IPC IPCConfig `yaml:"ipc"`

	// State WebSocket server (renderer frame feed)
	StateWS StateWSConfig `yaml:"state_ws"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type DisplayConfig struct {
	// ScreenHeight in logical pixels; visual tunables scale against it.
	ScreenHeight int `yaml:"screen_height"`

	// PixelRatio divides coordinates of backends that report physical pixels.
	PixelRatio float64 `yaml:"pixel_ratio"`

	TickIntervalMS int `yaml:"tick_interval_ms"`
}

type BackendConfig struct {
	// Force pins one backend by name (hyprland, gnome, kwin, hybrid, x11,
	// toolkit) and skips environment probing. Empty means auto-select.
	Force string `yaml:"force,omitempty"`

	// MiceDevice is the raw relative-motion device used by the hybrid backend.
	MiceDevice string `yaml:"mice_device"`
}

type PetFileConfig struct {
	MoveSpeed   float64 `yaml:"move_speed"`
	WanderSpeed float64 `yaml:"wander_speed"`

	NearDistance float64 `yaml:"near_distance"`
	FarDistance  float64 `yaml:"far_distance"`

	WanderDurationMinMS  int     `yaml:"wander_duration_min_ms"`
	WanderDurationMaxMS  int     `yaml:"wander_duration_max_ms"`
	WanderRadius         float64 `yaml:"wander_radius"`
	WanderDirChangeMinMS int     `yaml:"wander_dir_change_min_ms"`
	WanderDirChangeMaxMS int     `yaml:"wander_dir_change_max_ms"`

	IdleMinDurationMS int `yaml:"idle_min_duration_ms"`
	IdleMaxDurationMS int `yaml:"idle_max_duration_ms"`

	MouseMoveThreshold float64 `yaml:"mouse_move_threshold"`
	MouseIdleT1MS      int     `yaml:"mouse_idle_t1_ms"`
	MouseIdleT2MS      int     `yaml:"mouse_idle_t2_ms"`
	IdleRampDurationMS int     `yaml:"idle_ramp_duration_ms"`

	SealWanderRadius float64 `yaml:"seal_wander_radius"`

	// IdleAnimations are the identifiers drawn from while idling.
	// SpecialIdleAnimation must be one of them; its selection probability
	// ramps toward 1.0 with prolonged pointer idleness.
	IdleAnimations       []string `yaml:"idle_animations"`
	SpecialIdleAnimation string   `yaml:"special_idle_animation"`

	// Seed for the behavior RNG. 0 seeds from the clock.
	Seed int64 `yaml:"seed,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Display: DisplayConfig{
			ScreenHeight:   referenceScreenHeight,
			PixelRatio:     defaultPixelRatio,
			TickIntervalMS: defaultTickIntervalMS,
		},
		Backend: BackendConfig{
			MiceDevice: defaultMiceDevice,
		},
		Pet: PetFileConfig{
			MoveSpeed:            defaultMoveSpeed,
			WanderSpeed:          defaultWanderSpeed,
			NearDistance:         defaultNearDistance,
			FarDistance:          defaultFarDistance,
			WanderDurationMinMS:  defaultWanderDurationMinMS,
			WanderDurationMaxMS:  defaultWanderDurationMaxMS,
			WanderRadius:         defaultWanderRadius,
			WanderDirChangeMinMS: defaultWanderDirChangeMinMS,
			WanderDirChangeMaxMS: defaultWanderDirChangeMaxMS,
			IdleMinDurationMS:    defaultIdleMinDurationMS,
			IdleMaxDurationMS:    defaultIdleMaxDurationMS,
			MouseMoveThreshold:   defaultMouseMoveThreshold,
			MouseIdleT1MS:        defaultMouseIdleT1MS,
			MouseIdleT2MS:        defaultMouseIdleT2MS,
			IdleRampDurationMS:   defaultIdleRampDurationMS,
			SealWanderRadius:     defaultSealWanderRadius,
			IdleAnimations:       []string{"idle1", "idle2", "idle3", "idle4", "idle5"},
			SpecialIdleAnimation: "idle2",
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		StateWS: StateWSConfig{
			Port: defaultStateWSPort,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage after the document.
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
// Each override is only applied if its pointer is non-nil.
type FlagOverrides struct {
	ScreenHeight   *int
	PixelRatio     *float64
	TickIntervalMS *int

	BackendForce *string
	MiceDevice   *string

	Seed *int64

	IPCSocketPath *string
	StateWSPort   *int

	LogLevel *string
}

// Apply merges the overrides into cfg. Nil pointers are ignored.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.ScreenHeight != nil {
		cfg.Display.ScreenHeight = *o.ScreenHeight
	}
	if o.PixelRatio != nil {
		cfg.Display.PixelRatio = *o.PixelRatio
	}
	if o.TickIntervalMS != nil {
		cfg.Display.TickIntervalMS = *o.TickIntervalMS
	}
	if o.BackendForce != nil {
		cfg.Backend.Force = *o.BackendForce
	}
	if o.MiceDevice != nil {
		cfg.Backend.MiceDevice = *o.MiceDevice
	}
	if o.Seed != nil {
		cfg.Pet.Seed = *o.Seed
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSPort != nil {
		cfg.StateWS.Port = *o.StateWSPort
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// Call after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	if c.Display.ScreenHeight <= 0 {
		return errors.New("display.screen_height must be > 0")
	}
	if c.Display.PixelRatio <= 0 {
		return errors.New("display.pixel_ratio must be > 0")
	}
	if c.Display.TickIntervalMS <= 0 || c.Display.TickIntervalMS > 1000 {
		return errors.New("display.tick_interval_ms must be between 1 and 1000")
	}

	if c.Backend.MiceDevice == "" {
		return errors.New("backend.mice_device must not be empty")
	}
	switch c.Backend.Force {
	case "", backendNameHyprland, backendNameGnome, backendNameKWin,
		backendNameHybrid, backendNameX11, backendNameToolkit:
	default:
		return fmt.Errorf("backend.force must be one of: %s, %s, %s, %s, %s, %s",
			backendNameHyprland, backendNameGnome, backendNameKWin,
			backendNameHybrid, backendNameX11, backendNameToolkit)
	}

	p := c.Pet
	if p.MoveSpeed <= 0 || p.WanderSpeed <= 0 {
		return errors.New("pet.move_speed and pet.wander_speed must be > 0")
	}
	if p.NearDistance <= 0 || p.FarDistance <= p.NearDistance {
		return errors.New("pet.near_distance must be > 0 and < pet.far_distance")
	}
	if p.WanderDurationMinMS <= 0 || p.WanderDurationMaxMS < p.WanderDurationMinMS {
		return errors.New("pet.wander_duration_min_ms must be > 0 and <= pet.wander_duration_max_ms")
	}
	if p.WanderDirChangeMinMS <= 0 || p.WanderDirChangeMaxMS < p.WanderDirChangeMinMS {
		return errors.New("pet.wander_dir_change_min_ms must be > 0 and <= pet.wander_dir_change_max_ms")
	}
	if p.IdleMinDurationMS <= 0 || p.IdleMaxDurationMS < p.IdleMinDurationMS {
		return errors.New("pet.idle_min_duration_ms must be > 0 and <= pet.idle_max_duration_ms")
	}
	if p.WanderRadius <= 0 || p.SealWanderRadius <= 0 {
		return errors.New("pet.wander_radius and pet.seal_wander_radius must be > 0")
	}
	if p.MouseMoveThreshold <= 0 {
		return errors.New("pet.mouse_move_threshold must be > 0")
	}
	if p.MouseIdleT1MS <= 0 || p.MouseIdleT2MS <= p.MouseIdleT1MS {
		return errors.New("pet.mouse_idle_t1_ms must be > 0 and < pet.mouse_idle_t2_ms")
	}
	if p.IdleRampDurationMS <= 0 {
		return errors.New("pet.idle_ramp_duration_ms must be > 0")
	}
	if len(p.IdleAnimations) == 0 {
		return errors.New("pet.idle_animations must not be empty")
	}
	special := false
	for _, a := range p.IdleAnimations {
		if a == "" {
			return errors.New("pet.idle_animations entries must not be empty")
		}
		if a == p.SpecialIdleAnimation {
			special = true
		}
	}
	if !special {
		return errors.New("pet.special_idle_animation must be one of pet.idle_animations")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}
	if c.StateWS.Port <= 0 || c.StateWS.Port > 65535 {
		return errors.New("state_ws.port must be a valid TCP port")
	}
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// TickInterval returns the tick cadence as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Display.TickIntervalMS) * time.Millisecond
}

// ============================================================================
// Tunables - screen-scaled behavior snapshot
// ============================================================================
// The pet state machine receives an explicit Tunables value instead of
// reaching into ambient configuration. Visual parameters scale with screen
// height so the pet keeps the same proportions on any resolution; durations
// are wall-clock and never scale.
// ============================================================================

type Tunables struct {
	MoveSpeed   float64
	WanderSpeed float64

	NearDistance float64
	FarDistance  float64

	WanderDurationMin  float64 // ms
	WanderDurationMax  float64 // ms
	WanderRadius       float64
	WanderDirChangeMin float64 // ms
	WanderDirChangeMax float64 // ms

	IdleMinDuration float64 // ms
	IdleMaxDuration float64 // ms

	MouseMoveThreshold float64
	MouseIdleT1        float64 // ms
	MouseIdleT2        float64 // ms
	IdleRampDuration   float64 // ms

	SealWanderRadius float64

	IdleAnimations       []string
	SpecialIdleAnimation string
}

// Tunables converts the file config into the unscaled behavior snapshot.
func (c *Config) Tunables() Tunables {
	p := c.Pet
	return Tunables{
		MoveSpeed:   p.MoveSpeed,
		WanderSpeed: p.WanderSpeed,

		NearDistance: p.NearDistance,
		FarDistance:  p.FarDistance,

		WanderDurationMin:  float64(p.WanderDurationMinMS),
		WanderDurationMax:  float64(p.WanderDurationMaxMS),
		WanderRadius:       p.WanderRadius,
		WanderDirChangeMin: float64(p.WanderDirChangeMinMS),
		WanderDirChangeMax: float64(p.WanderDirChangeMaxMS),

		IdleMinDuration: float64(p.IdleMinDurationMS),
		IdleMaxDuration: float64(p.IdleMaxDurationMS),

		MouseMoveThreshold: p.MouseMoveThreshold,
		MouseIdleT1:        float64(p.MouseIdleT1MS),
		MouseIdleT2:        float64(p.MouseIdleT2MS),
		IdleRampDuration:   float64(p.IdleRampDurationMS),

		SealWanderRadius: p.SealWanderRadius,

		IdleAnimations:       append([]string(nil), p.IdleAnimations...),
		SpecialIdleAnimation: p.SpecialIdleAnimation,
	}
}

// AdaptToScreen scales visual parameters proportionally to screenHeight.
// Safe to call again when screen geometry changes; it always recomputes from
// the receiver, so pass the unscaled snapshot.
func (t Tunables) AdaptToScreen(screenHeight int) Tunables {
	ratio := float64(screenHeight) / float64(referenceScreenHeight)

	t.MoveSpeed *= ratio
	t.WanderSpeed *= ratio
	t.NearDistance *= ratio
	t.FarDistance *= ratio
	t.WanderRadius *= ratio
	t.SealWanderRadius *= ratio
	t.MouseMoveThreshold *= ratio

	return t
}
