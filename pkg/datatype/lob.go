package datatype

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrStreamConsumed is returned when a single-use stream is opened twice.
var ErrStreamConsumed = errors.New("stream has already been consumed")

// StorageMode describes where a streamable value's content lives.
type StorageMode int

// Storage modes.
const (
	// StorageModeOther means the content is read lazily from the source that
	// produced it and is only valid while that source is open.
	StorageModeOther StorageMode = iota
	// StorageModeMemory means the content has been copied into engine storage.
	StorageModeMemory
	// StorageModePersistent means the content lives in durable storage.
	StorageModePersistent
	// StorageModeFree means the content has been released.
	StorageModeFree
)

// String returns the mode name.
func (m StorageMode) String() string {
	switch m {
	case StorageModeMemory:
		return "MEMORY"
	case StorageModePersistent:
		return "PERSISTENT"
	case StorageModeFree:
		return "FREE"
	default:
		return "OTHER"
	}
}

// InputStreamFactory opens readers over the content of a large object.
type InputStreamFactory struct {
	mu     sync.Mutex
	open   func() (io.ReadCloser, error)
	free   func() error
	length int64
	mode   StorageMode
}

// NewInputStreamFactory creates a factory from an open function. A negative
// length means unknown.
func NewInputStreamFactory(open func() (io.ReadCloser, error), length int64) *InputStreamFactory {
	return &InputStreamFactory{open: open, length: length, mode: StorageModeOther}
}

// NewMemoryFactory creates a factory over an in-memory byte slice.
func NewMemoryFactory(b []byte) *InputStreamFactory {
	return &InputStreamFactory{
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
		length: int64(len(b)),
		mode:   StorageModeMemory,
	}
}

// NewReaderFactory wraps a one-shot reader. The first Open returns r; later
// calls fail with ErrStreamConsumed.
func NewReaderFactory(r io.Reader) *InputStreamFactory {
	var once sync.Once
	return &InputStreamFactory{
		open: func() (io.ReadCloser, error) {
			var rc io.ReadCloser
			once.Do(func() {
				if c, ok := r.(io.ReadCloser); ok {
					rc = c
					return
				}
				rc = io.NopCloser(r)
			})
			if rc == nil {
				return nil, ErrStreamConsumed
			}
			return rc, nil
		},
		length: -1,
		mode:   StorageModeOther,
	}
}

// Open returns a new reader over the content.
func (f *InputStreamFactory) Open() (io.ReadCloser, error) {
	f.mu.Lock()
	mode := f.mode
	f.mu.Unlock()
	if mode == StorageModeFree {
		return nil, fmt.Errorf("lob content has been freed")
	}
	return f.open()
}

// Length returns the content length in bytes, or -1 when unknown.
func (f *InputStreamFactory) Length() int64 {
	return f.length
}

// StorageMode returns the current storage mode.
func (f *InputStreamFactory) StorageMode() StorageMode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// SetStorageMode records where the content lives.
func (f *InputStreamFactory) SetStorageMode(m StorageMode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = m
}

// OnFree registers a callback run by Free.
func (f *InputStreamFactory) OnFree(fn func() error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.free = fn
}

// Free releases the content.
func (f *InputStreamFactory) Free() error {
	f.mu.Lock()
	fn := f.free
	f.free = nil
	f.mode = StorageModeFree
	f.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return nil
}

// Streamable is implemented by every large-object value.
type Streamable interface {
	// Factory returns the content source.
	Factory() *InputStreamFactory
	// Type returns the runtime type tag of the value.
	Type() Type
}

type lob struct {
	factory *InputStreamFactory
}

// Factory returns the content source.
func (l *lob) Factory() *InputStreamFactory {
	return l.factory
}

// Length returns the content length in bytes, or -1 when unknown.
func (l *lob) Length() int64 {
	return l.factory.Length()
}

// StorageMode returns the storage mode of the content.
func (l *lob) StorageMode() StorageMode {
	return l.factory.StorageMode()
}

// Bytes reads the full content.
func (l *lob) Bytes() ([]byte, error) {
	rc, err := l.factory.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

// BlobType is a binary large object.
type BlobType struct {
	lob
}

// NewBlob creates a blob over f.
func NewBlob(f *InputStreamFactory) *BlobType {
	return &BlobType{lob{factory: f}}
}

// NewBlobBytes creates a memory-backed blob.
func NewBlobBytes(b []byte) *BlobType {
	return NewBlob(NewMemoryFactory(b))
}

// Type returns Blob.
func (*BlobType) Type() Type { return Blob }

// ClobType is a character large object, UTF-8 encoded.
type ClobType struct {
	lob
}

// NewClob creates a clob over f.
func NewClob(f *InputStreamFactory) *ClobType {
	return &ClobType{lob{factory: f}}
}

// NewClobString creates a memory-backed clob.
func NewClobString(s string) *ClobType {
	return NewClob(NewMemoryFactory([]byte(s)))
}

// Type returns Clob.
func (*ClobType) Type() Type { return Clob }

// Text reads the full content as a string.
func (c *ClobType) Text() (string, error) {
	b, err := c.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// XMLKind classifies XML content.
type XMLKind int

// XML content kinds.
const (
	XMLUnknown XMLKind = iota
	XMLDocument
	XMLContent
	XMLElement
	XMLText
)

// XMLType is an XML large object.
type XMLType struct {
	lob
	kind XMLKind
}

// NewXML creates an XML value over f.
func NewXML(f *InputStreamFactory) *XMLType {
	return &XMLType{lob: lob{factory: f}}
}

// NewXMLString creates a memory-backed XML value and infers its kind.
func NewXMLString(s string) *XMLType {
	x := NewXML(NewMemoryFactory([]byte(s)))
	trimmed := strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(trimmed, "<?xml"):
		x.kind = XMLDocument
	case strings.HasPrefix(trimmed, "<"):
		x.kind = XMLElement
	case trimmed != "":
		x.kind = XMLText
	}
	return x
}

// Type returns XML.
func (*XMLType) Type() Type { return XML }

// Kind returns the content kind.
func (x *XMLType) Kind() XMLKind { return x.kind }

// SetKind records the content kind.
func (x *XMLType) SetKind(k XMLKind) { x.kind = k }

// Text reads the full content as a string.
func (x *XMLType) Text() (string, error) {
	b, err := x.Bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Rebind returns a value of the same kind as s whose content comes from f.
func Rebind(s Streamable, f *InputStreamFactory) Streamable {
	switch v := s.(type) {
	case *BlobType:
		return NewBlob(f)
	case *ClobType:
		return NewClob(f)
	case *XMLType:
		x := NewXML(f)
		x.kind = v.kind
		return x
	default:
		return s
	}
}
