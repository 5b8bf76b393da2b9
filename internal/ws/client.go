package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultBackoff is the fixed delay between reconnect attempts
const DefaultBackoff = 3 * time.Second

// Client follows a WebSocket feed and reconnects after a fixed delay
// whenever the connection drops
type Client struct {
	URL       string
	Header    http.Header
	Backoff   time.Duration
	Dialer    *websocket.Dialer
	Logger    *zap.Logger
	OnConnect func(attempt int)
	OnMessage func(data []byte)
}

// Run dials and reads until ctx is cancelled. It returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 1; ; attempt++ {
		conn, _, err := dialer.DialContext(ctx, c.URL, c.Header)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("websocket dial failed", zap.String("url", c.URL), zap.Int("attempt", attempt), zap.Error(err))
		} else {
			if c.OnConnect != nil {
				c.OnConnect(attempt)
			}
			err = c.read(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Info("websocket disconnected, reconnecting",
				zap.String("url", c.URL),
				zap.Duration("backoff", backoff),
				zap.Error(err))
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if c.OnMessage != nil {
			c.OnMessage(data)
		}
	}
}
