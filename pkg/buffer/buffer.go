// Package buffer supplies engine-owned storage for materialized large
// objects.
package buffer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/txn2/fedquery/pkg/datatype"
)

// ErrBufferFull is returned when a write would exceed the manager's limit.
var ErrBufferFull = errors.New("lob buffer limit exceeded")

// ErrRemoved is returned when reading a removed store.
var ErrRemoved = errors.New("file store has been removed")

// Manager creates file stores.
type Manager interface {
	CreateFileStore(name string) (FileStore, error)
}

// FileStore is an append-only byte store that can be read any number of
// times until removed.
type FileStore interface {
	io.Writer
	Open() (io.ReadCloser, error)
	Length() int64
	Remove() error
}

// MemoryManager keeps file stores in memory under a shared byte limit.
type MemoryManager struct {
	maxBytes int64

	mu     sync.Mutex
	used   int64
	stores int
}

// NewMemoryManager creates a manager. maxBytes <= 0 means unlimited.
func NewMemoryManager(maxBytes int64) *MemoryManager {
	return &MemoryManager{maxBytes: maxBytes}
}

// CreateFileStore creates an empty store.
func (m *MemoryManager) CreateFileStore(name string) (FileStore, error) {
	m.mu.Lock()
	m.stores++
	m.mu.Unlock()
	return &memoryStore{name: name, manager: m}, nil
}

// Used returns the bytes currently held.
func (m *MemoryManager) Used() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// Stores returns the number of live stores.
func (m *MemoryManager) Stores() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stores
}

func (m *MemoryManager) reserve(n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 && m.used+n > m.maxBytes {
		return fmt.Errorf("reserving %d bytes with %d of %d in use: %w", n, m.used, m.maxBytes, ErrBufferFull)
	}
	m.used += n
	return nil
}

func (m *MemoryManager) release(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= n
	m.stores--
}

type memoryStore struct {
	name    string
	manager *MemoryManager

	mu      sync.RWMutex
	buf     bytes.Buffer
	removed bool
}

func (s *memoryStore) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return 0, ErrRemoved
	}
	if err := s.manager.reserve(int64(len(p))); err != nil {
		return 0, fmt.Errorf("writing %s: %w", s.name, err)
	}
	return s.buf.Write(p)
}

func (s *memoryStore) Open() (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.removed {
		return nil, ErrRemoved
	}
	return io.NopCloser(bytes.NewReader(s.buf.Bytes())), nil
}

func (s *memoryStore) Length() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(s.buf.Len())
}

func (s *memoryStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return nil
	}
	s.removed = true
	s.manager.release(int64(s.buf.Len()))
	s.buf = bytes.Buffer{}
	return nil
}

// CopyLOB reads the full content of s into a new file store and returns a
// value of the same kind backed by that store, in storage mode MEMORY. The
// store is removed when the returned value is freed.
func CopyLOB(m Manager, name string, s datatype.Streamable) (datatype.Streamable, error) {
	store, err := m.CreateFileStore(name)
	if err != nil {
		return nil, fmt.Errorf("creating file store: %w", err)
	}

	src, err := s.Factory().Open()
	if err != nil {
		_ = store.Remove()
		return nil, fmt.Errorf("opening lob source: %w", err)
	}
	defer func() { _ = src.Close() }()

	if _, err := io.Copy(store, src); err != nil {
		_ = store.Remove()
		return nil, fmt.Errorf("copying lob: %w", err)
	}

	factory := datatype.NewInputStreamFactory(store.Open, store.Length())
	factory.SetStorageMode(datatype.StorageModeMemory)
	factory.OnFree(store.Remove)
	return datatype.Rebind(s, factory), nil
}
