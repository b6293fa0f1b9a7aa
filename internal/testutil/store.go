// Package testutil provides an in-memory object store for testing.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/store"
)

// MemoryObject is an object held by MemoryStore.
type MemoryObject struct {
	Data         []byte
	LastModified time.Time
	ContentType  string
}

// MemoryStore is an in-memory store.Store with hooks for injecting failures.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]MemoryObject

	// PageSize caps every listing page. Zero uses the requested size.
	PageSize int

	// PrimaryNotImplemented makes token-based listing fail with ErrNotImplemented.
	PrimaryNotImplemented bool

	// ListErr fails every listing request.
	ListErr error

	// GetHook runs before each read. A non-nil error fails the read.
	GetHook func(ctx context.Context, key string) error

	// PutHook runs before each write. A non-nil error fails the write.
	PutHook func(ctx context.Context, key string) error

	// ListCalls records every listing request in order.
	ListCalls []store.ListInput
}

var _ store.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]MemoryObject)}
}

// Put stores an object.
func (m *MemoryStore) Put(bucket, key string, data []byte, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[bucket] == nil {
		m.buckets[bucket] = make(map[string]MemoryObject)
	}
	m.buckets[bucket][key] = MemoryObject{Data: data, LastModified: lastModified}
}

// Object returns a stored object.
func (m *MemoryStore) Object(bucket, key string) (MemoryObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	return obj, ok
}

// Keys returns the sorted keys of a bucket.
func (m *MemoryStore) Keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LegacyListCalls counts marker-based listing requests.
func (m *MemoryStore) LegacyListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.ListCalls {
		if c.Legacy {
			n++
		}
	}
	return n
}

// List implements store.Store. Cursors are the last key of the previous page.
func (m *MemoryStore) List(ctx context.Context, input *store.ListInput) (*store.ListPage, error) {
	m.mu.Lock()
	m.ListCalls = append(m.ListCalls, *input)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if m.PrimaryNotImplemented && !input.Legacy {
		return nil, fmt.Errorf("%w: ListObjectsV2", errors.ErrNotImplemented)
	}

	size := int(input.MaxKeys)
	if size <= 0 || size > int(store.MaxPageSize) {
		size = int(store.MaxPageSize)
	}
	if m.PageSize > 0 && m.PageSize < size {
		size = m.PageSize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.buckets[input.Bucket] {
		if strings.HasPrefix(k, input.Prefix) && k > input.Cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &store.ListPage{}
	if len(keys) > size {
		keys = keys[:size]
		page.Truncated = true
		page.NextCursor = keys[size-1]
	}
	for _, k := range keys {
		obj := m.buckets[input.Bucket][k]
		page.Entries = append(page.Entries, store.Entry{
			Key:          k,
			Size:         int64(len(obj.Data)),
			LastModified: obj.LastModified,
			ETag:         CalculateETag(obj.Data),
		})
	}
	return page, nil
}

// GetObject implements store.Store.
func (m *MemoryStore) GetObject(ctx context.Context, input *store.GetInput) (*store.GetOutput, error) {
	if m.GetHook != nil {
		if err := m.GetHook(ctx, input.Key); err != nil {
			return nil, err
		}
	}
	obj, ok := m.Object(input.Bucket, input.Key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errors.ErrObjectNotFound, input.Key)
	}
	return &store.GetOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Data)),
		ContentLength: int64(len(obj.Data)),
		ETag:          CalculateETag(obj.Data),
	}, nil
}

// PutObject implements store.Store.
func (m *MemoryStore) PutObject(ctx context.Context, input *store.PutInput) (*store.PutOutput, error) {
	if m.PutHook != nil {
		if err := m.PutHook(ctx, input.Key); err != nil {
			return nil, err
		}
	}
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buckets[input.Bucket] == nil {
		m.buckets[input.Bucket] = make(map[string]MemoryObject)
	}
	m.buckets[input.Bucket][input.Key] = MemoryObject{
		Data:         data,
		LastModified: time.Now(),
		ContentType:  input.ContentType,
	}
	return &store.PutOutput{ETag: CalculateETag(data)}, nil
}
