package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GoldenScan/pkg/util"

	"github.com/gorilla/websocket"
)

// PriceUpdate is a live last-price observation from the ticker stream.
type PriceUpdate struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Stream consumes the Binance miniTicker array stream and emits price
// updates between REST polls. Purely additive: the scanner overlays these
// on the last polled snapshot, the polling cadence is unchanged.
type Stream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// NewStream creates a live ticker stream client.
func NewStream(url string, reconnectDelay, pingInterval time.Duration) *Stream {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("stream connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	return nil
}

// IsConnected reports connection state.
func (s *Stream) IsConnected() bool { return s.connected }

// Reconnect closes and re-dials after the configured delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	return s.Connect(ctx)
}

// Close terminates the connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

type miniTicker struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
	Time   int64  `json:"E"` // ms
}

// Read streams price updates and errors until ctx is done or the
// connection drops.
func (s *Stream) Read(ctx context.Context) (<-chan PriceUpdate, <-chan error) {
	updates := make(chan PriceUpdate, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	go func() {
		defer close(updates)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("stream conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("stream read: %w", err)
					return
				}
				var batch []miniTicker
				if err := json.Unmarshal(b, &batch); err != nil {
					// ignore non-ticker frames
					continue
				}
				for _, m := range batch {
					price := util.ParseFloat(m.Close)
					if price <= 0 {
						continue
					}
					u := PriceUpdate{Symbol: m.Symbol, Price: price, Time: time.UnixMilli(m.Time).UTC()}
					select {
					case updates <- u:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return updates, errs
}
