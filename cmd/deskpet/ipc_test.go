package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// The IPC server listens on a real Unix socket in a temp dir; the test drives
// it with the same client helper petctl uses.

func startTestIPCServer(t *testing.T) (string, chan Event, context.CancelFunc) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "deskpet.sock")
	events := make(chan Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := runIPCServer(ctx, socketPath, events, slog.Default()); err != nil {
			t.Errorf("ipc server: %v", err)
		}
	}()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, "ipc socket never appeared")

	return socketPath, events, cancel
}

func TestIPC_EventsReachTheDaemonChannel(t *testing.T) {
	socketPath, events, cancel := startTestIPCServer(t)
	defer cancel()

	if err := SendIPCEvent(socketPath, SealPosition{X: 640, Y: 360}); err != nil {
		t.Fatalf("send seal_position: %v", err)
	}
	if err := SendIPCEvent(socketPath, Ping{}); err != nil {
		t.Fatalf("send ping: %v", err)
	}

	select {
	case ev := <-events:
		sp, ok := ev.(SealPosition)
		if !ok || sp.X != 640 || sp.Y != 360 {
			t.Fatalf("first event = %T %+v, want SealPosition{640 360}", ev, ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for first event")
	}

	select {
	case ev := <-events:
		if _, ok := ev.(Ping); !ok {
			t.Fatalf("second event = %T, want Ping", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for second event")
	}
}

func TestIPC_MalformedLinesGetErrorResponses(t *testing.T) {
	socketPath, events, cancel := startTestIPCServer(t)
	defer cancel()

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "{\"type\":\"teleport\"}\n"); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("response = %+v, want error status with a message", resp)
	}

	// Nothing should have reached the daemon.
	select {
	case ev := <-events:
		t.Fatalf("unexpected event forwarded: %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIPC_ReplacesStaleSocketFile(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "deskpet.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0o644); err != nil {
		t.Fatalf("plant stale socket: %v", err)
	}

	events := make(chan Event, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = runIPCServer(ctx, socketPath, events, slog.Default())
	}()

	waitUntil(t, time.Second, func() bool {
		return SendIPCEvent(socketPath, Ping{}) == nil
	}, "server never became reachable over the replaced socket")
}
