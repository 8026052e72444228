package main

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialConsole(t *testing.T, rc *RemoteConsole) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(rc.Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + remoteConsolePath
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return rc.Clients() == 1 }, 2*time.Second, time.Millisecond)
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(string) bool) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		if match(string(msg)) {
			return string(msg)
		}
	}
}

func TestRemoteConsole_ScreenUpdates(t *testing.T) {
	m, ctx := startTestMachine(t)
	rc := NewRemoteConsole(m)
	conn := dialConsole(t, rc)

	readUntil(t, conn, func(s string) bool { return strings.HasPrefix(s, "screen\n") })

	_, err := Query(ctx, m, func(m *Machine) struct{} {
		m.Memory().Store(aceVideoRAM, 'O')
		m.Memory().Store(aceVideoRAM+1, 'K')
		return struct{}{}
	})
	require.NoError(t, err)

	screen := readUntil(t, conn, func(s string) bool { return strings.HasPrefix(s, "screen\nOK") })
	lines := strings.Split(screen, "\n")
	assert.Len(t, lines, 1+aceRows)
}

func TestRemoteConsole_Commands(t *testing.T) {
	m, _ := startTestMachine(t)
	rc := NewRemoteConsole(m)
	conn := dialConsole(t, rc)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("!normal")))
	require.Eventually(t, func() bool { return m.Timing().Speed() == SpeedNormal }, 2*time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("!fast\n")))
	require.Eventually(t, func() bool { return m.Timing().Speed() == SpeedUnthrottled }, 2*time.Second, time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("words")))
	readUntil(t, conn, func(s string) bool { return s == "event Opened spool file." })
}

func TestRemoteConsole_LastScreenOnConnect(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	rc := NewRemoteConsole(m)
	rc.screenRefreshed(m)

	conn := dialConsole(t, rc)
	msg := readUntil(t, conn, func(string) bool { return true })
	assert.True(t, strings.HasPrefix(msg, "screen\n"))
}

func TestRemoteConsole_ClientLeaves(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	rc := NewRemoteConsole(m)
	conn := dialConsole(t, rc)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return rc.Clients() == 0 }, 2*time.Second, time.Millisecond)

	rc.broadcast("nobody listening")
}

func TestRemoteConsole_ListenAndServeStops(t *testing.T) {
	m, _ := newTestMachine(t, nil)
	rc := NewRemoteConsole(m)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- rc.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
