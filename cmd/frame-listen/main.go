package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame-listen connects to the deskpet frame WebSocket and prints every
// frame as it arrives. Debugging aid: watch the pet move without a renderer.

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3071/ws", "deskpet frame websocket URL")
		raw   = flag.Bool("raw", false, "Print raw JSON instead of one line per frame")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if *raw {
				fmt.Printf("%s\n", string(message))
				continue
			}
			printFrame(message)
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

type frameMsg struct {
	Type string `json:"type"`
	Data struct {
		Animation string  `json:"animation"`
		Flipped   bool    `json:"flipped"`
		X         float64 `json:"x"`
		Y         float64 `json:"y"`
		Seal      string  `json:"seal"`
	} `json:"data"`
}

// printFrame renders one frame per line: type, animation, position, seal.
func printFrame(message []byte) {
	var m frameMsg
	if err := json.Unmarshal(message, &m); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	line := fmt.Sprintf("[%s] %-16s (%7.1f, %7.1f)", m.Type, m.Data.Animation, m.Data.X, m.Data.Y)
	if m.Data.Flipped {
		line += " flipped"
	}
	if m.Data.Seal != "" && m.Data.Seal != "none" {
		line += " seal=" + m.Data.Seal
	}
	fmt.Println(line)
}
