package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
)

// ============================================================================
// petctl - Command-line IPC Client
// ============================================================================
// This tool sends events to the deskpet daemon via IPC.
//
// Usage:
//   petctl ping
//   petctl seal-pos 640 360
//   petctl dismiss-seal
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/deskpet.sock)
// ============================================================================

// Event types (duplicated from the daemon package for standalone binary)
type Event interface{}

type SealPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DismissSeal struct{}

type Ping struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/deskpet.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var event Event

	switch args[0] {
	case "ping":
		event = Ping{}

	case "seal-pos", "seal-position":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "error: seal-pos requires X and Y coordinates\n")
			os.Exit(1)
		}
		x, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid X coordinate: %v\n", err)
			os.Exit(1)
		}
		y, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid Y coordinate: %v\n", err)
			os.Exit(1)
		}
		event = SealPosition{X: x, Y: y}

	case "dismiss-seal", "dismiss":
		event = DismissSeal{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send event
	if err := sendEvent(socketPath, event); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func sendEvent(socketPath string, event Event) error {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal event
	data, err := marshalEvent(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	// Send event (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	// Check response status
	if response.Status == "error" {
		return fmt.Errorf("daemon error: %s", response.Error)
	}

	return nil
}

func marshalEvent(event Event) ([]byte, error) {
	var env EventEnvelope

	switch e := event.(type) {
	case SealPosition:
		env.Type = "seal_position"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SealPosition: %w", err)
		}
		env.Data = data

	case DismissSeal:
		env.Type = "dismiss_seal"

	case Ping:
		env.Type = "ping"

	default:
		return nil, fmt.Errorf("unknown event type: %T", event)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `petctl - Control the deskpet daemon via IPC

Usage:
  petctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/deskpet.sock)

Commands:
  ping                    Check the daemon is alive
  seal-pos <X> <Y>        Report the seal sprite's on-screen position
  dismiss-seal, dismiss   Dismiss an active seal
  help, -h, --help        Show this help message

Examples:
  petctl ping
  petctl seal-pos 640 360
  petctl -socket /var/run/deskpet.sock dismiss-seal
`)
}
