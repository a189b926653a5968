package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

type fakeChannel struct {
	name     string
	err      error
	messages []string
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Send(_ context.Context, title, message string) error {
	f.messages = append(f.messages, title+": "+message)
	return f.err
}

func TestService_BroadcastsExecution(t *testing.T) {
	first := &fakeChannel{name: "first"}
	second := &fakeChannel{name: "second"}
	service := NewService(zap.NewNop(), first, second)

	service.OnExecution(context.Background(), common.Execution{
		Symbol:    "EURUSD",
		Direction: common.DirectionBuy,
		Volume:    fixed.FromFloat64(0.1),
		FillPrice: fixed.FromFloat64(1.1001),
		FillTime:  time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	})

	if len(first.messages) != 1 || len(second.messages) != 1 {
		t.Fatalf("Expected every channel to receive the message, got %d/%d",
			len(first.messages), len(second.messages))
	}
	if !strings.Contains(first.messages[0], "EURUSD") || !strings.Contains(first.messages[0], "1.1001") {
		t.Errorf("Malformed execution message: %q", first.messages[0])
	}
}

func TestService_FailingChannelDoesNotBlockOthers(t *testing.T) {
	broken := &fakeChannel{name: "broken", err: errors.New("unreachable")}
	healthy := &fakeChannel{name: "healthy"}
	service := NewService(zap.NewNop(), broken, healthy)

	service.OnPendingOrder(context.Background(), common.PendingOrder{
		Symbol:      "EURUSD",
		Direction:   common.DirectionSell,
		TargetOrder: common.OrderTypeLimit,
		Volume:      fixed.FromFloat64(0.1),
		TargetPrice: fixed.FromFloat64(1.1200),
	})

	if len(healthy.messages) != 1 {
		t.Errorf("Expected delivery to continue past a failing channel, got %d", len(healthy.messages))
	}
}

func TestTelegram_SendsBotAPIForm(t *testing.T) {
	var gotPath, gotChatId, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotChatId = r.PostFormValue("chat_id")
		gotText = r.PostFormValue("text")
	}))
	defer server.Close()

	telegram := NewTelegram("token123", "chat42").WithEndpoint(server.URL)
	if err := telegram.Send(context.Background(), "Order filled", "details"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotPath != "/bottoken123/sendMessage" {
		t.Errorf("Expected bot API path, got %q", gotPath)
	}
	if gotChatId != "chat42" {
		t.Errorf("Expected chat_id chat42, got %q", gotChatId)
	}
	if gotText != "Order filled\ndetails" {
		t.Errorf("Expected title and body in text, got %q", gotText)
	}
}

func TestTelegram_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	telegram := NewTelegram("bad", "chat").WithEndpoint(server.URL)
	if err := telegram.Send(context.Background(), "title", "msg"); err == nil {
		t.Error("Expected error for non-200 response")
	}
}
