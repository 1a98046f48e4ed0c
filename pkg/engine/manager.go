// Package engine drives commands against connectors: one ConnectorManager
// per configured source, and one ConnectorWorkItem per connector-bound
// request.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/txn2/fedquery/pkg/bridge"
	"github.com/txn2/fedquery/pkg/buffer"
	"github.com/txn2/fedquery/pkg/commandlog"
	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/metadata"
)

const defaultFetchSize = 256

// ConnectionStatus is the health of a manager's source.
type ConnectionStatus string

// Connection statuses.
const (
	StatusInitFailed ConnectionStatus = "INIT_FAILED"
	StatusOK         ConnectionStatus = "OK"
	StatusFailed     ConnectionStatus = "FAILED"
	StatusUnknown    ConnectionStatus = "UNKNOWN"
)

// Stats are cumulative counters for a manager.
type Stats struct {
	InFlight      int   `json:"in_flight"`
	Executions    int64 `json:"executions"`
	Cancellations int64 `json:"cancellations"`
	Failures      int64 `json:"failures"`
}

// Option configures a ConnectorManager.
type Option func(*ConnectorManager)

// WithConnectionFactory sets the object connections are obtained from.
func WithConnectionFactory(cf connector.ConnectionFactory) Option {
	return func(m *ConnectorManager) { m.connFactory = cf }
}

// WithCatalog sets the catalog used for translation and passed to
// executions as runtime metadata.
func WithCatalog(c metadata.Catalog) Option {
	return func(m *ConnectorManager) { m.catalog = c }
}

// WithCommandLogger records source command events.
func WithCommandLogger(l commandlog.Logger) Option {
	return func(m *ConnectorManager) { m.commandLog = l }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *ConnectorManager) { m.logger = l }
}

// WithBuffer sets the storage for copied LOBs.
func WithBuffer(b buffer.Manager) Option {
	return func(m *ConnectorManager) { m.buffer = b }
}

// WithFetchSize sets the default batch size.
func WithFetchSize(n int) Option {
	return func(m *ConnectorManager) { m.fetchSize = n }
}

// WithExecutionTimeout sets the default execution timeout.
func WithExecutionTimeout(d time.Duration) Option {
	return func(m *ConnectorManager) { m.timeout = d }
}

// ConnectorManager owns one connector and the requests running against it.
type ConnectorManager struct {
	name        string
	factory     connector.ExecutionFactory
	connFactory connector.ConnectionFactory
	catalog     metadata.Catalog
	translator  *bridge.Translator
	commandLog  commandlog.Logger
	logger      *slog.Logger
	buffer      buffer.Manager
	fetchSize   int
	timeout     time.Duration

	startMu  sync.Mutex
	started  bool
	startErr error

	capsMu       sync.Mutex
	capabilities *connector.Capabilities

	mu       sync.RWMutex
	requests map[AtomicRequestID]*ConnectorWorkItem

	executions    atomic.Int64
	cancellations atomic.Int64
	failures      atomic.Int64
}

// NewConnectorManager creates a manager for factory under name.
func NewConnectorManager(name string, factory connector.ExecutionFactory, opts ...Option) *ConnectorManager {
	m := &ConnectorManager{
		name:      name,
		factory:   factory,
		logger:    slog.Default(),
		fetchSize: defaultFetchSize,
		requests:  make(map[AtomicRequestID]*ConnectorWorkItem),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.buffer == nil {
		m.buffer = buffer.NewMemoryManager(0)
	}
	if m.fetchSize <= 0 {
		m.fetchSize = defaultFetchSize
	}
	m.translator = bridge.New(m.catalog)
	return m
}

// Name returns the connector name.
func (m *ConnectorManager) Name() string { return m.name }

// Factory returns the execution factory.
func (m *ConnectorManager) Factory() connector.ExecutionFactory { return m.factory }

// Start initializes the execution factory. It is idempotent once it has
// succeeded.
func (m *ConnectorManager) Start(ctx context.Context) error {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	if m.started {
		return nil
	}

	if m.factory.IsSourceRequiredForCapabilities() && m.connFactory == nil {
		m.startErr = connector.Errorf(connector.CodeCapabilities,
			"connector %s requires a connection to determine its capabilities, but no connection factory is configured", m.name)
		return m.startErr
	}
	if err := m.factory.Start(ctx); err != nil {
		m.startErr = connector.Errorf(connector.CodeExecution, "starting connector %s: %w", m.name, err)
		return m.startErr
	}

	m.started = true
	m.startErr = nil
	m.logger.Info("connector started",
		"connector", m.name,
		"source_required", m.factory.IsSourceRequired(),
		"transaction_support", m.factory.TransactionSupport(),
	)
	return nil
}

// Stop cancels every live request and closes the connection factory when it
// is an io.Closer.
func (m *ConnectorManager) Stop(_ context.Context) error {
	m.mu.Lock()
	items := make([]*ConnectorWorkItem, 0, len(m.requests))
	for _, w := range m.requests {
		items = append(items, w)
	}
	m.mu.Unlock()

	for _, w := range items {
		_ = w.Cancel()
		_ = w.Close()
	}

	m.startMu.Lock()
	m.started = false
	m.startMu.Unlock()

	if c, ok := m.connFactory.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing connection factory for %s: %w", m.name, err)
		}
	}
	m.logger.Info("connector stopped", "connector", m.name)
	return nil
}

// RegisterRequest creates the work item for msg. Registering an id that is
// already live is a caller bug and panics.
func (m *ConnectorManager) RegisterRequest(msg *AtomicRequestMessage) *ConnectorWorkItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[msg.ID]; exists {
		panic("State already existed")
	}
	w := newWorkItem(m, msg)
	m.requests[msg.ID] = w
	return w
}

// State returns the live work item for id.
func (m *ConnectorManager) State(id AtomicRequestID) (*ConnectorWorkItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.requests[id]
	return w, ok
}

// RemoveState forgets id. Unknown ids are ignored.
func (m *ConnectorManager) RemoveState(id AtomicRequestID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.requests, id)
}

// Size returns the number of live requests.
func (m *ConnectorManager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Stats returns the manager counters.
func (m *ConnectorManager) Stats() Stats {
	return Stats{
		InFlight:      m.Size(),
		Executions:    m.executions.Load(),
		Cancellations: m.cancellations.Load(),
		Failures:      m.failures.Load(),
	}
}

// Capabilities returns the connector's capabilities, initializing them on
// first use. A connection is obtained for the duration of initialization
// when the connector requires one. Failures are not cached.
func (m *ConnectorManager) Capabilities(ctx context.Context) (connector.Capabilities, error) {
	m.capsMu.Lock()
	defer m.capsMu.Unlock()
	if m.capabilities != nil {
		return *m.capabilities, nil
	}

	if !m.factory.IsSourceRequiredForCapabilities() {
		if err := m.factory.InitCapabilities(ctx, nil); err != nil {
			return connector.Capabilities{}, connector.Errorf(connector.CodeCapabilities, "initializing capabilities of %s: %w", m.name, err)
		}
	} else if err := m.initCapabilitiesWithConnection(ctx); err != nil {
		return connector.Capabilities{}, err
	}

	caps := m.factory.Capabilities()
	m.capabilities = &caps
	return caps, nil
}

func (m *ConnectorManager) initCapabilitiesWithConnection(ctx context.Context) error {
	if m.connFactory == nil {
		return connector.Errorf(connector.CodeCapabilities,
			"connector %s requires a connection to determine its capabilities, but no connection factory is configured", m.name)
	}
	conn, err := m.factory.GetConnection(ctx, m.connFactory, m.newExecutionContext(nil))
	if err != nil {
		return connector.Errorf(connector.CodeCapabilities, "obtaining connection for %s capabilities: %w", m.name, err)
	}
	defer func() {
		if err := m.factory.CloseConnection(conn, m.connFactory); err != nil {
			m.logger.Warn("closing capabilities connection", "connector", m.name, "error", err)
		}
	}()
	if err := m.factory.InitCapabilities(ctx, conn); err != nil {
		return connector.Errorf(connector.CodeCapabilities, "initializing capabilities of %s: %w", m.name, err)
	}
	return nil
}

// pinger is implemented by connections that can check their source.
type pinger interface {
	Ping(ctx context.Context) error
}

// Status probes the source.
func (m *ConnectorManager) Status(ctx context.Context) ConnectionStatus {
	m.startMu.Lock()
	started, startErr := m.started, m.startErr
	m.startMu.Unlock()
	if !started {
		if startErr != nil {
			return StatusInitFailed
		}
		return StatusUnknown
	}
	if !m.factory.IsSourceRequired() || m.connFactory == nil {
		return StatusUnknown
	}

	conn, err := m.factory.GetConnection(ctx, m.connFactory, m.newExecutionContext(nil))
	if err != nil {
		m.logger.Warn("connector status check failed", "connector", m.name, "error", err)
		return StatusFailed
	}
	defer func() { _ = m.factory.CloseConnection(conn, m.connFactory) }()

	if p, ok := conn.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			m.logger.Warn("connector ping failed", "connector", m.name, "error", err)
			return StatusFailed
		}
	}
	return StatusOK
}

func (m *ConnectorManager) newExecutionContext(msg *AtomicRequestMessage) *connector.ExecutionContext {
	ec := &connector.ExecutionContext{
		ConnectionID:  uuid.NewString(),
		ConnectorName: m.name,
		BatchSize:     m.fetchSize,
		Buffer:        m.buffer,
	}
	if msg == nil {
		return ec
	}
	ec.RequestID = msg.ID.RequestID
	ec.PartID = fmt.Sprintf("%d", msg.ID.NodeID)
	ec.ExecutionCount = msg.ID.ExecutionID
	ec.User = msg.User
	ec.Transactional = msg.Transaction != nil
	if msg.FetchSize > 0 {
		ec.BatchSize = msg.FetchSize
	}
	if msg.Buffer != nil {
		ec.Buffer = msg.Buffer
	}
	return ec
}

func (m *ConnectorManager) logCommand(ctx context.Context, e *commandlog.Event) {
	if m.commandLog == nil {
		return
	}
	if err := m.commandLog.Log(ctx, *e); err != nil {
		m.logger.Warn("writing command log", "connector", m.name, "error", err)
	}
}
