// Package stream consumes a live tick feed over a websocket and hands each
// decoded tick to a handler, typically the paper broker's tick intake plus a
// bar builder.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const streamComponentName = "tick-stream"

const (
	defaultReadTimeout      = 60 * time.Second
	defaultReconnectBackoff = 5 * time.Second
)

type TickHandler func(ctx context.Context, tick common.Tick)

type tickMessage struct {
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp int64   `json:"ts_ms"`
}

// Client keeps one websocket subscription alive, reconnecting with a fixed
// backoff until the context is cancelled.
type Client struct {
	logger  *zap.Logger
	url     string
	handler TickHandler

	readTimeout      time.Duration
	reconnectBackoff time.Duration
}

func NewClient(logger *zap.Logger, url string, handler TickHandler) *Client {
	return &Client{
		logger:           logger,
		url:              url,
		handler:          handler,
		readTimeout:      defaultReadTimeout,
		reconnectBackoff: defaultReconnectBackoff,
	}
}

// Run blocks until the context is cancelled. Connection drops are logged and
// retried, a failed dial waits out the backoff before the next attempt.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("tick stream interrupted, reconnecting",
				zap.String("url", c.url), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectBackoff):
		}
	}
}

func (c *Client) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("unable to dial tick stream: %w", err)
	}
	// The watcher unblocks the read on cancellation and exits with the
	// connection, reconnects must not leak one goroutine per attempt.
	connDone := make(chan struct{})
	defer func() {
		close(connDone)
		_ = conn.Close()
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-connDone:
		}
	}()

	c.logger.Info("tick stream connected", zap.String("url", c.url))

	for {
		if err := conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return fmt.Errorf("unable to set read deadline: %w", err)
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("unable to read tick message: %w", err)
		}

		tick, err := c.decode(payload)
		if err != nil {
			c.logger.Warn("malformed tick message dropped", zap.Error(err))
			continue
		}
		c.handler(ctx, tick)
	}
}

func (c *Client) decode(payload []byte) (common.Tick, error) {
	var msg tickMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return common.Tick{}, err
	}
	if msg.Symbol == "" {
		return common.Tick{}, errors.New("tick message without symbol")
	}
	if msg.Ask <= 0 || msg.Bid <= 0 || msg.Ask < msg.Bid {
		return common.Tick{}, fmt.Errorf("invalid quote %f/%f for %s", msg.Bid, msg.Ask, msg.Symbol)
	}

	return common.Tick{
		Ask:         fixed.FromFloat64(msg.Ask),
		Bid:         fixed.FromFloat64(msg.Bid),
		Source:      streamComponentName,
		Symbol:      msg.Symbol,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   time.UnixMilli(msg.Timestamp).UTC(),
	}, nil
}
