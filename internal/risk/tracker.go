package risk

import "sync"

// OrderTracker scopes a single open order against the manager's open-order
// count. Construction increments the count for Symbol; Release decrements
// it. Release is safe to call multiple times or concurrently — the
// decrement happens exactly once regardless, via sync.Once, so a deferred
// Release alongside an explicit early Release can never double-decrement.
type OrderTracker struct {
	manager *Manager
	symbol  string
	once    sync.Once
}

// NewOrderTracker increments symbol's open-order count and returns a
// tracker whose Release must be called once the order reaches a terminal
// state (filled, cancelled, rejected).
func NewOrderTracker(m *Manager, symbol string) *OrderTracker {
	m.incrementOpenOrders(symbol)
	return &OrderTracker{manager: m, symbol: symbol}
}

// Release decrements the tracked open-order count. Exactly-once: only the
// first call has any effect.
func (t *OrderTracker) Release() {
	t.once.Do(func() {
		t.manager.decrementOpenOrders(t.symbol)
	})
}
