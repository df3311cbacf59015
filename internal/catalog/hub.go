package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// ErrHubStopped is returned for messages sent after the hub has exited.
var ErrHubStopped = errors.New("catalog hub stopped")

// Hub serialises every cache access through a single goroutine. Messages are
// applied strictly in arrival order.
type Hub struct {
	cache    *Cache
	requests chan func(*Cache)
	done     chan struct{}
	logger   *zap.Logger
}

// NewHub creates a hub over an empty cache. Call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cache:    NewCache(),
		requests: make(chan func(*Cache)),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Run owns the cache until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	h.logger.Info("catalog hub started")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("catalog hub stopped")
			return nil
		case fn := <-h.requests:
			fn(h.cache)
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) exec(ctx context.Context, fn func(*Cache)) error {
	applied := make(chan struct{})
	msg := func(c *Cache) {
		fn(c)
		close(applied)
	}

	select {
	case h.requests <- msg:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// The hub runs a received message before reading the next one.
	<-applied
	return nil
}

func (h *Hub) ReplaceMachines(ctx context.Context, machines []models.Machine) error {
	return h.exec(ctx, func(c *Cache) { c.ReplaceMachines(machines) })
}

func (h *Hub) ReplaceInventory(ctx context.Context, machineID int64, products []models.Product) error {
	return h.exec(ctx, func(c *Cache) { c.ReplaceInventory(machineID, products) })
}

func (h *Hub) ReplaceSearch(ctx context.Context, query string, products []models.Product) error {
	return h.exec(ctx, func(c *Cache) { c.ReplaceSearch(query, products) })
}

func (h *Hub) ClearSearch(ctx context.Context) error {
	return h.exec(ctx, func(c *Cache) { c.ClearSearch() })
}

// ApplyDelta patches the cached stock and reports how many records changed.
func (h *Hub) ApplyDelta(ctx context.Context, delta models.StockDelta) (int, error) {
	var changed int
	err := h.exec(ctx, func(c *Cache) { changed = c.ApplyDelta(delta) })
	return changed, err
}

func (h *Hub) SetPosition(ctx context.Context, res models.Resolution) error {
	return h.exec(ctx, func(c *Cache) { c.SetPosition(res) })
}

// UpdateView applies fn to the current view state atomically and returns the result.
func (h *Hub) UpdateView(ctx context.Context, fn func(*models.ViewState)) (models.ViewState, error) {
	var view models.ViewState
	err := h.exec(ctx, func(c *Cache) {
		next := copyView(c.view)
		fn(&next)
		c.SetView(next)
		view = copyView(next)
	})
	return view, err
}

func (h *Hub) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := h.exec(ctx, func(c *Cache) { snap = c.Snapshot() })
	return snap, err
}
