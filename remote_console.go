// remote_console.go - WebSocket remote console for acemu

/*
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	remoteConsolePath = "/ace"
	remoteQueueSize   = 16
)

// RemoteConsole mirrors the screen to websocket clients and types what
// they send. Messages to a client that cannot keep up are dropped.
type RemoteConsole struct {
	machine  *Machine
	upgrader websocket.Upgrader

	mu         sync.Mutex
	clients    map[*remoteClient]struct{}
	lastScreen string
}

type remoteClient struct {
	conn   *websocket.Conn
	send   chan string
	logger *log.Logger
}

func NewRemoteConsole(m *Machine) *RemoteConsole {
	rc := &RemoteConsole{
		machine: m,
		clients: make(map[*remoteClient]struct{}),
	}
	m.AddRefreshObserver(rc.screenRefreshed)
	m.Tape().AddObserver(func(ev TapeEvent) {
		if ev.Kind != TapeNoMessage {
			rc.broadcast("event " + ev.Message)
		}
	})
	m.AddSpoolerObserver(func(ev SpoolerEvent) {
		rc.broadcast("event " + ev.String())
	})
	return rc
}

// Handler serves the console under /ace.
func (rc *RemoteConsole) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(remoteConsolePath, rc)
	return mux
}

// ListenAndServe serves until ctx ends.
func (rc *RemoteConsole) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: rc.Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	log.Printf("Started remote console at %s%s", addr, remoteConsolePath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("remote console: %w", err)
	}
	return nil
}

func (rc *RemoteConsole) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := rc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("websocket upgrade error:", err)
		return
	}
	c := &remoteClient{
		conn:   conn,
		send:   make(chan string, remoteQueueSize),
		logger: log.New(log.Writer(), fmt.Sprintf("[client/%s] ", conn.RemoteAddr()), log.Flags()),
	}
	c.logger.Printf("New client connection")

	rc.mu.Lock()
	rc.clients[c] = struct{}{}
	if rc.lastScreen != "" {
		c.send <- rc.lastScreen
	}
	rc.mu.Unlock()

	writerDone := make(chan struct{})
	go c.writeLoop(writerDone)

	for {
		tp, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if tp != websocket.TextMessage {
			c.logger.Printf("ignoring non-text message")
			continue
		}
		rc.handleCommand(string(msg))
	}

	rc.mu.Lock()
	delete(rc.clients, c)
	close(c.send)
	rc.mu.Unlock()
	<-writerDone
	conn.Close()
	c.logger.Printf("Closed client connection")
}

func (c *remoteClient) writeLoop(done chan<- struct{}) {
	defer close(done)
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			c.logger.Printf("write failed: %v", err)
			// Unblock the reader so the handler can clean up.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// handleCommand types text into the machine. Lines starting with ! are
// console commands.
func (rc *RemoteConsole) handleCommand(text string) {
	switch strings.TrimSpace(text) {
	case "!reset":
		rc.machine.HostReset()
	case "!fast":
		rc.machine.SetSpeed(SpeedUnthrottled)
	case "!normal":
		rc.machine.SetSpeed(SpeedNormal)
	default:
		rc.machine.Spooler().Type(text)
	}
}

// screenRefreshed runs on the CPU goroutine after each refresh and sends
// the screen when it changed.
func (rc *RemoteConsole) screenRefreshed(m *Machine) {
	screen := "screen\n" + strings.Join(ScreenText(m.mem), "\n")
	rc.mu.Lock()
	changed := screen != rc.lastScreen
	rc.lastScreen = screen
	rc.mu.Unlock()
	if changed {
		rc.broadcast(screen)
	}
}

func (rc *RemoteConsole) broadcast(msg string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for c := range rc.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Clients reports how many clients are connected.
func (rc *RemoteConsole) Clients() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.clients)
}
