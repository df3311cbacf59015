// Package livesync keeps a receive-only push connection to the stock event
// stream open, reconnecting after a fixed delay until shutdown.
package livesync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

// DefaultReconnectDelay is the fixed wait between a disconnect and the next dial.
const DefaultReconnectDelay = 3 * time.Second

// State is the connection lifecycle of the channel.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DeltaSink receives stock deltas decoded from the stream.
type DeltaSink interface {
	ApplyDelta(ctx context.Context, delta models.StockDelta) (int, error)
}

// Stats is a point-in-time view of the channel counters.
type Stats struct {
	State           State
	ConnectAttempts uint64
	Connects        uint64
	DeltasApplied   uint64
	MalformedFrames uint64
}

// Option customises a Channel.
type Option func(*Channel)

// WithClock replaces the clock used for the reconnect timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Channel) { c.clock = clock }
}

// WithDialer replaces the websocket dialer.
func WithDialer(dialer Dialer) Option {
	return func(c *Channel) { c.dialer = dialer }
}

// WithReconnectDelay overrides DefaultReconnectDelay.
func WithReconnectDelay(delay time.Duration) Option {
	return func(c *Channel) {
		if delay > 0 {
			c.delay = delay
		}
	}
}

// Channel is the live sync state machine.
type Channel struct {
	url    string
	sink   DeltaSink
	dialer Dialer
	clock  clockwork.Clock
	delay  time.Duration
	logger *zap.Logger

	state     atomic.Int32
	attempts  atomic.Uint64
	connects  atomic.Uint64
	deltas    atomic.Uint64
	malformed atomic.Uint64

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewChannel prepares a channel to url. Nothing is dialled until Run.
func NewChannel(url string, sink DeltaSink, logger *zap.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{
		url:    url,
		sink:   sink,
		dialer: NewWebSocketDialer(),
		clock:  clockwork.NewRealClock(),
		delay:  DefaultReconnectDelay,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run connects and keeps reconnecting until ctx is cancelled or Shutdown is
// called. It always ends in StateStopped.
func (c *Channel) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		cancel()
		return errors.New("live sync channel already running")
	}
	c.cancel = cancel
	if c.stopped {
		cancel()
	}
	c.mu.Unlock()

	defer cancel()
	defer c.setState(StateStopped)

	for {
		c.connectOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}

		c.setState(StateDisconnected)
		c.logger.Info("live sync disconnected, scheduling reconnect", zap.Duration("delay", c.delay))

		timer := c.clock.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.Chan():
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// Shutdown stops Run and suppresses any pending reconnect. A channel shut
// down before Run never dials.
func (c *Channel) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Channel) State() State {
	return State(c.state.Load())
}

func (c *Channel) Stats() Stats {
	return Stats{
		State:           c.State(),
		ConnectAttempts: c.attempts.Load(),
		Connects:        c.connects.Load(),
		DeltasApplied:   c.deltas.Load(),
		MalformedFrames: c.malformed.Load(),
	}
}

func (c *Channel) setState(s State) {
	if State(c.state.Swap(int32(s))) != s {
		c.logger.Debug("live sync state changed", zap.Stringer("state", s))
	}
}

func (c *Channel) connectOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	c.setState(StateConnecting)
	c.attempts.Add(1)

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Warn("live sync dial failed", zap.String("url", c.url), zap.Error(err))
		}
		return
	}

	connID := uuid.NewString()
	logger := c.logger.With(zap.String("connection_id", connID))
	c.connects.Add(1)
	c.setState(StateConnected)
	logger.Info("live sync connected", zap.String("url", c.url))

	c.receive(ctx, conn, logger)
}

// receive reads frames until the connection fails or ctx ends.
func (c *Channel) receive(ctx context.Context, conn Conn, logger *zap.Logger) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = conn.Close()
	}()

	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logger.Info("live sync connection closed", zap.Error(err))
			}
			return
		}
		c.handleFrame(ctx, frame, logger)
	}
}

func (c *Channel) handleFrame(ctx context.Context, frame []byte, logger *zap.Logger) {
	msg, err := models.ParsePushMessage(frame)
	if err != nil {
		c.malformed.Add(1)
		logger.Warn("ignoring malformed push frame", zap.ByteString("frame", frame), zap.Error(err))
		return
	}

	delta, ok := msg.StockDelta()
	if !ok {
		logger.Debug("ignoring push action", zap.String("action", string(msg.Action)))
		return
	}

	changed, err := c.sink.ApplyDelta(ctx, delta)
	if err != nil {
		logger.Warn("stock delta not applied", zap.Int64("product_id", delta.ProductID), zap.Error(err))
		return
	}
	c.deltas.Add(1)
	logger.Debug("stock delta applied", zap.Int64("product_id", delta.ProductID), zap.Int("records", changed))
}
