package native

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	internalbook "github.com/luxfi/tradefabric/internal/book"
	"github.com/luxfi/tradefabric/internal/venue"
	"github.com/luxfi/tradefabric/pkg/types"
)

// Reconnect/keepalive tuning, carried over from the teacher's market feed.
const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
)

// streamSet manages one WebSocket connection multiplexing ticker, trade,
// orderbook and order events, dispatched to caller-registered callbacks
// instead of the teacher's typed channels — the adapter contract (§4.5)
// is callback-based, not channel-based.
type streamSet struct {
	url  string
	auth *venue.SignedTimestampAuth

	connMu sync.Mutex
	conn   *websocket.Conn

	subsMu          sync.Mutex
	tickerCbs       map[string]venue.TickerCallback
	tradeCbs        map[string]venue.TradeCallback
	orderbookCbs    map[string]venue.OrderbookCallback
	orderCb         venue.OrderCallback

	cancel context.CancelFunc
	logger *slog.Logger
}

func newStreamSet(url string, auth *venue.SignedTimestampAuth, logger *slog.Logger) *streamSet {
	return &streamSet{
		url:          url,
		auth:         auth,
		tickerCbs:    make(map[string]venue.TickerCallback),
		tradeCbs:     make(map[string]venue.TradeCallback),
		orderbookCbs: make(map[string]venue.OrderbookCallback),
		logger:       logger.With("component", "native_ws"),
	}
}

func (s *streamSet) start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(runCtx)
}

func (s *streamSet) stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
}

func (s *streamSet) run(ctx context.Context) {
	backoff := time.Second
	for {
		err := s.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("stream disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (s *streamSet) connectAndRead(ctx context.Context) error {
	if s.url == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	defer func() {
		s.connMu.Lock()
		conn.Close()
		s.conn = nil
		s.connMu.Unlock()
	}()

	if err := s.resubscribeAll(); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go s.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.dispatch(msg)
	}
}

func (s *streamSet) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

type wireEnvelope struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

func (s *streamSet) dispatch(data []byte) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Debug("ignoring non-json stream message")
		return
	}

	switch env.Channel {
	case "ticker":
		var t wireTicker
		if err := json.Unmarshal(data, &t); err != nil {
			s.logger.Error("unmarshal ticker event", "error", err)
			return
		}
		s.subsMu.Lock()
		cb, ok := s.tickerCbs[env.Symbol]
		s.subsMu.Unlock()
		if ok {
			cb(types.Ticker{Symbol: env.Symbol, Bid: t.Bid, Ask: t.Ask, Last: t.Last, Timestamp: t.time()})
		}

	case "trade":
		var tr wireTrade
		if err := json.Unmarshal(data, &tr); err != nil {
			s.logger.Error("unmarshal trade event", "error", err)
			return
		}
		s.subsMu.Lock()
		cb, ok := s.tradeCbs[env.Symbol]
		s.subsMu.Unlock()
		if ok {
			cb(types.Trade{ID: tr.ID, Symbol: env.Symbol, Side: types.Side(tr.Side), Price: tr.Price, Size: tr.Size, Timestamp: tr.time()})
		}

	case "orderbook":
		var ob wireOrderbook
		if err := json.Unmarshal(data, &ob); err != nil {
			s.logger.Error("unmarshal orderbook event", "error", err)
			return
		}
		s.subsMu.Lock()
		cb, ok := s.orderbookCbs[env.Symbol]
		s.subsMu.Unlock()
		if ok {
			b := internalbook.New(env.Symbol, "")
			for _, lvl := range ob.Bids {
				b.AddBid(lvl.Price, lvl.Quantity)
			}
			for _, lvl := range ob.Asks {
				b.AddAsk(lvl.Price, lvl.Quantity)
			}
			b.Sort()
			cb(b.Snapshot())
		}

	case "order":
		var o wireOrder
		if err := json.Unmarshal(data, &o); err != nil {
			s.logger.Error("unmarshal order event", "error", err)
			return
		}
		s.subsMu.Lock()
		cb := s.orderCb
		s.subsMu.Unlock()
		if cb != nil {
			cb(toOrder(o, ""))
		}

	default:
		s.logger.Debug("unknown stream channel", "channel", env.Channel)
	}
}

func (s *streamSet) subscribeTicker(symbol string, cb venue.TickerCallback) error {
	s.subsMu.Lock()
	s.tickerCbs[symbol] = cb
	s.subsMu.Unlock()
	return s.writeSubscribe("ticker", symbol)
}

func (s *streamSet) subscribeTrades(symbol string, cb venue.TradeCallback) error {
	s.subsMu.Lock()
	s.tradeCbs[symbol] = cb
	s.subsMu.Unlock()
	return s.writeSubscribe("trades", symbol)
}

func (s *streamSet) subscribeOrderbook(symbol string, cb venue.OrderbookCallback) error {
	s.subsMu.Lock()
	s.orderbookCbs[symbol] = cb
	s.subsMu.Unlock()
	return s.writeSubscribe("orderbook", symbol)
}

func (s *streamSet) subscribeOrders(cb venue.OrderCallback) error {
	s.subsMu.Lock()
	s.orderCb = cb
	s.subsMu.Unlock()
	return s.writeSubscribe("orders", "")
}

func (s *streamSet) unsubscribeAll() {
	s.subsMu.Lock()
	s.tickerCbs = make(map[string]venue.TickerCallback)
	s.tradeCbs = make(map[string]venue.TradeCallback)
	s.orderbookCbs = make(map[string]venue.OrderbookCallback)
	s.orderCb = nil
	s.subsMu.Unlock()
}

func (s *streamSet) resubscribeAll() error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for symbol := range s.tickerCbs {
		if err := s.writeSubscribeLocked("ticker", symbol); err != nil {
			return err
		}
	}
	for symbol := range s.tradeCbs {
		if err := s.writeSubscribeLocked("trades", symbol); err != nil {
			return err
		}
	}
	for symbol := range s.orderbookCbs {
		if err := s.writeSubscribeLocked("orderbook", symbol); err != nil {
			return err
		}
	}
	if s.orderCb != nil {
		if err := s.writeSubscribeLocked("orders", ""); err != nil {
			return err
		}
	}
	return nil
}

type subscribeMsg struct {
	Operation string `json:"operation"`
	Channel   string `json:"channel"`
	Symbol    string `json:"symbol,omitempty"`
}

func (s *streamSet) writeSubscribe(channel, symbol string) error {
	return s.writeJSON(subscribeMsg{Operation: "subscribe", Channel: channel, Symbol: symbol})
}

func (s *streamSet) writeSubscribeLocked(channel, symbol string) error {
	return s.writeJSON(subscribeMsg{Operation: "subscribe", Channel: channel, Symbol: symbol})
}

func (s *streamSet) writeJSON(v any) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil // not yet connected; resubscribeAll replays on connect
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteJSON(v)
}

func (s *streamSet) writeMessage(msgType int, data []byte) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.conn.WriteMessage(msgType, data)
}
