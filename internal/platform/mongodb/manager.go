package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phrazzld/task-manager-api/internal/config"
	"github.com/phrazzld/task-manager-api/internal/events"
	"github.com/phrazzld/task-manager-api/internal/redact"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"
)

// Connection states reported by Manager.State.
const (
	StateDisconnected = "disconnected"
	StateConnecting   = "connecting"
	StateConnected    = "connected"
)

// Event sources attached to emitted connection events.
const (
	sourceConnect = "connect"
	sourceMonitor = "monitor"
	sourceClose   = "close"
)

// discardTimeout bounds the disconnect of a client that lost a race with Close.
const discardTimeout = 5 * time.Second

const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)

// Client is the subset of *mongo.Client the Manager depends on.
type Client interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	Disconnect(ctx context.Context) error
	Database(name string, opts ...*options.DatabaseOptions) *mongo.Database
}

// Dialer opens a client and verifies it can reach a primary.
type Dialer func(ctx context.Context, opts *options.ClientOptions) (Client, error)

// Manager owns the single shared database client.
// Connect is safe for concurrent use; simultaneous callers share one
// in-flight attempt.
type Manager struct {
	cfg     config.DatabaseConfig
	dial    Dialer
	emitter events.EventEmitter
	logger  *slog.Logger

	group singleflight.Group

	mu     sync.RWMutex
	client Client
	// generation is bumped by Close; an attempt that started under an
	// older generation discards its client instead of publishing it.
	generation uint64

	state atomic.Int32
	live  atomic.Bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDialer replaces the driver dialer, mainly for tests.
func WithDialer(d Dialer) ManagerOption {
	return func(m *Manager) {
		m.dial = d
	}
}

// WithLogger sets the logger used for attempt and lifecycle logging.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager for the given database configuration.
// Events are published to emitter, which may be nil.
func NewManager(cfg config.DatabaseConfig, emitter events.EventEmitter, opts ...ManagerOption) *Manager {
	m := &Manager{
		cfg:     cfg,
		dial:    dialMongo,
		emitter: emitter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.MaxAttempts < 1 {
		m.cfg.MaxAttempts = 1
	}
	m.logger = m.logger.With("component", "mongodb_manager")
	return m
}

func dialMongo(ctx context.Context, opts *options.ClientOptions) (Client, error) {
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// Connect returns the live client, establishing it first if needed.
// Failed attempts are retried with capped exponential backoff up to
// MaxAttempts; each failure is logged and emitted as an error event.
// Concurrent callers during an attempt all receive its outcome, and the
// attempt runs under the context of the caller that started it.
func (m *Manager) Connect(ctx context.Context) (Client, error) {
	if client := m.current(); client != nil {
		return client, nil
	}

	v, err, _ := m.group.Do("connect", func() (interface{}, error) {
		if client := m.current(); client != nil {
			return client, nil
		}
		return m.connectWithRetry(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// newBackoff returns the delays between connection attempts: InitialDelay
// doubling on every retry, capped at MaxDelay, for MaxAttempts-1 retries.
func newBackoff(cfg config.DatabaseConfig) retry.Backoff {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	b := retry.NewExponential(cfg.InitialDelay)
	b = retry.WithCappedDuration(cfg.MaxDelay, b)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

func (m *Manager) connectWithRetry(ctx context.Context) (Client, error) {
	m.mu.RLock()
	generation := m.generation
	m.mu.RUnlock()
	m.state.Store(stateConnecting)

	maxAttempts := m.cfg.MaxAttempts
	backoff := newBackoff(m.cfg)

	var (
		client  Client
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c, err := m.dialOnce(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, fmt.Sprintf("attempt %d/%d failed", attempt, maxAttempts),
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"error", redact.Error(err))

			ev := events.NewConnectionEvent(events.EventError, sourceConnect, err)
			ev.Attempt = attempt
			m.emit(ctx, ev)
			return retry.RetryableError(err)
		}
		client = c
		return nil
	})
	if err != nil {
		m.state.Store(stateDisconnected)
		m.logger.ErrorContext(ctx, "giving up connecting to database",
			"attempts", attempt,
			"error", redact.Error(err))
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
	}

	m.mu.Lock()
	if m.generation != generation {
		m.mu.Unlock()
		return nil, m.discard(ctx, client)
	}
	m.client = client
	m.live.Store(true)
	m.state.Store(stateConnected)
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "connected to database",
		"database", m.cfg.Name,
		"attempts", attempt)
	ev := events.NewConnectionEvent(events.EventConnected, sourceConnect, nil)
	ev.Attempt = attempt
	m.emit(ctx, ev)

	return client, nil
}

// discard disconnects a client dialed by an attempt that Close overtook.
func (m *Manager) discard(ctx context.Context, client Client) error {
	m.state.CompareAndSwap(stateConnecting, stateDisconnected)
	m.logger.WarnContext(ctx, "manager closed while connecting, discarding client")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		m.logger.ErrorContext(ctx, "error disconnecting discarded client", "error", redact.Error(err))
	}
	return ErrNotConnected
}

func (m *Manager) dialOnce(ctx context.Context) (Client, error) {
	if m.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ConnectTimeout)
		defer cancel()
	}
	return m.dial(ctx, m.clientOptions())
}

func (m *Manager) clientOptions() *options.ClientOptions {
	opts := options.Client().
		ApplyURI(m.cfg.URI).
		SetServerMonitor(m.serverMonitor())
	if m.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(m.cfg.ConnectTimeout).
			SetServerSelectionTimeout(m.cfg.ConnectTimeout)
	}
	return opts
}

func (m *Manager) serverMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			m.handleHeartbeatFailed(e.Failure)
		},
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			m.handleTopologyChanged(hasAvailableServer(e.NewDescription.Servers))
		},
	}
}

func hasAvailableServer(servers []description.Server) bool {
	for _, s := range servers {
		if s.Kind != description.Unknown {
			return true
		}
	}
	return false
}

// handleHeartbeatFailed reports driver heartbeat failures once a client is live.
func (m *Manager) handleHeartbeatFailed(err error) {
	if !m.live.Load() {
		return
	}
	m.emit(context.Background(), events.NewConnectionEvent(events.EventError, sourceMonitor, err))
}

// handleTopologyChanged emits connected/disconnected only on state transitions.
func (m *Manager) handleTopologyChanged(available bool) {
	if !m.live.Load() {
		return
	}
	ctx := context.Background()
	if available {
		if m.state.CompareAndSwap(stateDisconnected, stateConnected) {
			m.logger.Info("database connection restored")
			m.emit(ctx, events.NewConnectionEvent(events.EventConnected, sourceMonitor, nil))
		}
		return
	}
	if m.state.CompareAndSwap(stateConnected, stateDisconnected) {
		m.logger.Warn("database connection lost")
		m.emit(ctx, events.NewConnectionEvent(events.EventDisconnected, sourceMonitor, nil))
	}
}

// Close disconnects the client, if any, and emits a disconnected event.
// An attempt still in flight discards whatever client it dials and fails
// with ErrNotConnected. A later Connect starts from scratch.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.generation++
	client := m.client
	m.client = nil
	if client != nil {
		m.live.Store(false)
		m.state.Store(stateDisconnected)
	}
	m.mu.Unlock()

	if client == nil {
		return nil
	}

	err := client.Disconnect(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "error disconnecting from database", "error", redact.Error(err))
	} else {
		m.logger.InfoContext(ctx, "database connection closed")
	}
	m.emit(ctx, events.NewConnectionEvent(events.EventDisconnected, sourceClose, err))

	if err != nil {
		return fmt.Errorf("failed to disconnect from database: %w", err)
	}
	return nil
}

// Collection returns a handle on the named collection of the configured
// database, or ErrNotConnected when there is no live client.
func (m *Manager) Collection(name string) (*mongo.Collection, error) {
	client := m.current()
	if client == nil {
		return nil, ErrNotConnected
	}
	return client.Database(m.cfg.Name).Collection(name), nil
}

// State reports the connection state for health probes.
func (m *Manager) State() string {
	switch m.state.Load() {
	case stateConnected:
		return StateConnected
	case stateConnecting:
		return StateConnecting
	default:
		return StateDisconnected
	}
}

func (m *Manager) current() Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

func (m *Manager) emit(ctx context.Context, ev *events.ConnectionEvent) {
	if m.emitter == nil {
		return
	}
	if err := m.emitter.EmitEvent(ctx, ev); err != nil {
		m.logger.WarnContext(ctx, "connection event handler failed",
			"event_type", ev.Type,
			"error", redact.Error(err))
	}
}
