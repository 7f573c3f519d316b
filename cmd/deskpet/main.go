package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("deskpet v%s\n", version)
	fmt.Println("Desktop pet daemon: pointer tracking + behavior engine")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  deskpet [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that tracks the global pointer position across display-server")
	fmt.Println("  environments (Hyprland, GNOME, KDE, plain X11, other Wayland")
	fmt.Println("  compositors) and drives a desktop-pet behavior state machine at a")
	fmt.Println("  fixed tick. A renderer consumes one frame per tick over WebSocket:")
	fmt.Println("  (animation, flipped, x, y, seal event).")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -backend string")
	fmt.Println("        Pin one pointer backend: hyprland|gnome|kwin|hybrid|x11|toolkit")
	fmt.Println("        (default: auto-select from the environment)")
	fmt.Println()
	fmt.Println("  -mice-device string")
	fmt.Printf("        Raw relative-motion device for the hybrid backend (default %q)\n", defaultMiceDevice)
	fmt.Println()
	fmt.Println("  -screen-height int")
	fmt.Printf("        Logical screen height used to scale behavior tunables (default %d)\n", referenceScreenHeight)
	fmt.Println()
	fmt.Println("  -pixel-ratio float")
	fmt.Println("        Device pixel ratio dividing physical-pixel backends (default 1.0)")
	fmt.Println()
	fmt.Println("  -tick-ms int")
	fmt.Printf("        Tick interval in milliseconds (default %d)\n", defaultTickIntervalMS)
	fmt.Println()
	fmt.Println("  -seed int")
	fmt.Println("        Behavior RNG seed; 0 seeds from the clock (default 0)")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultIPCSocketPath)
	fmt.Println()
	fmt.Println("  -ws-port int")
	fmt.Printf("        Frame WebSocket port on localhost (default %d)\n", defaultStateWSPort)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start with auto-selected backend")
	fmt.Println("  deskpet")
	fmt.Println()
	fmt.Println("  # Force the hybrid backend on a wlroots compositor")
	fmt.Println("  deskpet -backend hybrid -pixel-ratio 2.0")
	fmt.Println()
	fmt.Println("  # Reproducible behavior for debugging")
	fmt.Println("  deskpet -seed 42 -log-level debug")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - The hybrid backend needs read access to the mice device")
	fmt.Println("    (add your user to the 'input' group)")
	fmt.Println("  - Hyprland and KWin expose no button state; dragging works only on")
	fmt.Println("    backends that report the primary button")
	fmt.Println()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	var (
		configPath   = flag.String("config", "", "Path to YAML config file")
		backendForce = flag.String("backend", "", "Pin one pointer backend (hyprland|gnome|kwin|hybrid|x11|toolkit)")
		miceDevice   = flag.String("mice-device", defaultMiceDevice, "Raw relative-motion device for the hybrid backend")
		screenHeight = flag.Int("screen-height", referenceScreenHeight, "Logical screen height used to scale behavior tunables")
		pixelRatio   = flag.Float64("pixel-ratio", defaultPixelRatio, "Device pixel ratio dividing physical-pixel backends")
		tickMS       = flag.Int("tick-ms", defaultTickIntervalMS, "Tick interval in milliseconds")
		seed         = flag.Int64("seed", 0, "Behavior RNG seed; 0 seeds from the clock")
		ipcSocket    = flag.String("ipc-socket", defaultIPCSocketPath, "Unix domain socket path for IPC")
		wsPort       = flag.Int("ws-port", defaultStateWSPort, "Frame WebSocket port on localhost")
		logLevelStr  = flag.String("log-level", "info", "Log level: error, warn, info, debug")
		showVersion  = flag.Bool("version", false, "Print version and exit")
		showHelp     = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Config: defaults, then file, then flag overrides (only flags the user
	// actually set).
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var overrides FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "backend":
			overrides.BackendForce = backendForce
		case "mice-device":
			overrides.MiceDevice = miceDevice
		case "screen-height":
			overrides.ScreenHeight = screenHeight
		case "pixel-ratio":
			overrides.PixelRatio = pixelRatio
		case "tick-ms":
			overrides.TickIntervalMS = tickMS
		case "seed":
			overrides.Seed = seed
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocket
		case "ws-port":
			overrides.StateWSPort = wsPort
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Root context canceled by SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Select the pointer backend. The chain always terminates with a working
	// backend; Close runs on every exit path.
	env := detectEnvironment(os.Getenv)
	logger.Info("environment detected", "os", env.goos, "wayland", env.wayland,
		"hyprland", env.hyprlandSig != "", "desktop", env.desktop)

	backend := selectBackend(backendCandidates(env, cfg.Backend, logger), logger)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("backend close", "error", err)
		}
	}()

	// Behavior RNG: explicit seed for reproducible runs.
	rngSeed := cfg.Pet.Seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))
	logger.Debug("behavior rng seeded", "seed", rngSeed)

	// The pet starts at the pointer's current position.
	start, _ := backend.Query()
	if backend.NeedsScaling() {
		start = start.Scaled(cfg.Display.PixelRatio)
	}
	tun := cfg.Tunables().AdaptToScreen(cfg.Display.ScreenHeight)
	pet := NewPet(start.X, start.Y, tun, rng)

	events := make(chan Event, 64)

	// IPC server (petctl, scripts).
	go func() {
		if err := runIPCServer(ctx, cfg.IPC.SocketPath, events, logger); err != nil {
			logger.Error("IPC server failed", "error", err)
		}
	}()

	// Frame WebSocket server (renderer).
	wsServer := NewServer(logger, events, ServerConfig{})
	go wsServer.Hub().Run(ctx)

	mux := http.NewServeMux()
	wsServer.Register(mux, "/ws")
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.StateWS.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("frame ws listening", "addr", httpServer.Addr, "path", "/ws")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("frame ws server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("deskpet starting", "tick_ms", cfg.Display.TickIntervalMS,
		"screen_height", cfg.Display.ScreenHeight, "start_x", start.X, "start_y", start.Y)

	runDaemon(ctx, backend, pet, events, wsServer.Hub(), daemonConfig{
		tickInterval: cfg.TickInterval(),
		pixelRatio:   cfg.Display.PixelRatio,
	}, logger)

	logger.Info("deskpet stopped")
}
