// Package objectstoretest provides an in-memory object store with failure
// injection for tests.
package objectstoretest

import (
	"context"
	"fmt"
	"sync"

	"docstore/internal/objectstore"
)

// Fake is an in-memory ObjectStore. Keys listed with FailPut or FailGet
// return an error instead of touching the map.
type Fake struct {
	mu           sync.RWMutex
	objects      map[string][]byte
	contentTypes map[string]string
	failPut      map[string]error
	failGet      map[string]error
	putAll       error
	puts         int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
		failPut:      make(map[string]error),
		failGet:      make(map[string]error),
	}
}

// FailPut makes every Put of key fail with err.
func (f *Fake) FailPut(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut[key] = err
}

// FailAllPuts makes every Put fail with err. A nil err clears it.
func (f *Fake) FailAllPuts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putAll = err
}

// FailGet makes every Get of key fail with err.
func (f *Fake) FailGet(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[key] = err
}

// Object returns the stored bytes and content type for key.
func (f *Fake) Object(key string) ([]byte, string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.objects[key]
	return data, f.contentTypes[key], ok
}

// Len returns the number of stored objects.
func (f *Fake) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.objects)
}

// Puts returns the number of successful Put calls.
func (f *Fake) Puts() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.puts
}

func (f *Fake) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putAll != nil {
		return f.putAll
	}
	if err, ok := f.failPut[key]; ok {
		return err
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	f.objects[key] = copied
	f.contentTypes[key] = contentType
	f.puts++
	return nil
}

func (f *Fake) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if err, ok := f.failGet[key]; ok {
		return nil, err
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, objectstore.ErrNotFound)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

var _ objectstore.ObjectStore = (*Fake)(nil)
