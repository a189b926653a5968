package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

func newTickServer(t *testing.T, payloads ...string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		for _, payload := range payloads {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(payload))
		}
		_ = conn.Close()
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func newTestClient(url string, handler TickHandler) *Client {
	return &Client{
		logger:           zap.NewNop(),
		url:              url,
		handler:          handler,
		readTimeout:      time.Second,
		reconnectBackoff: 5 * time.Millisecond,
	}
}

func TestClient_DeliversDecodedTicks(t *testing.T) {
	server := newTickServer(t,
		`{"symbol": "EURUSD", "bid": 1.1000, "ask": 1.1001, "ts_ms": 1748865600000}`,
		`{"symbol": "EURUSD", "bid": 1.1001, "ask": 1.1000, "ts_ms": 1748865601000}`, // ask < bid, dropped
		`not json`,
	)
	defer server.Close()

	ticks := make(chan common.Tick, 8)
	client := newTestClient(wsURL(server), func(_ context.Context, tick common.Tick) {
		ticks <- tick
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()

	select {
	case tick := <-ticks:
		if tick.Symbol != "EURUSD" {
			t.Errorf("Expected EURUSD tick, got %s", tick.Symbol)
		}
		if !tick.Ask.Gt(tick.Bid) {
			t.Error("Expected a valid quote")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("No tick delivered")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on cancellation")
	}
}

func TestClient_ReconnectDoesNotAccumulateWatchers(t *testing.T) {
	server := newTickServer(t) // accepts and closes immediately
	defer server.Close()

	client := newTestClient(wsURL(server), func(context.Context, common.Tick) {})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = client.Run(ctx)
		close(done)
	}()

	// Let a handful of connect/drop cycles happen, then snapshot.
	time.Sleep(100 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	// Twenty more cycles must not grow the goroutine count cycle by cycle.
	time.Sleep(200 * time.Millisecond)
	grown := runtime.NumGoroutine() - baseline
	if grown > 5 {
		t.Errorf("Goroutine count grew by %d across reconnects", grown)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on cancellation")
	}
}
