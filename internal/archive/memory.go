package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryArchive is an in-memory archive for tests. The failure hooks
// let tests inject per-name errors to exercise partial-failure paths.
type MemoryArchive struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailPing, when set, is returned by Ping.
	FailPing error

	// FailGet returns a non-nil error to fail Get for a given name.
	FailGet func(name string) error

	// FailPut returns a non-nil error to fail Put for a given name.
	FailPut func(name string) error

	// FailList, when set, is returned by List.
	FailList error

	// PutCount tracks the number of successful Put calls per name.
	PutCount map[string]int
}

// NewMemory creates an empty in-memory archive.
func NewMemory() *MemoryArchive {
	return &MemoryArchive{
		blobs:    make(map[string][]byte),
		PutCount: make(map[string]int),
	}
}

// Ping reports the injected ping failure, if any.
func (a *MemoryArchive) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return a.FailPing
}

// Get returns the content of the named blob.
func (a *MemoryArchive) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.FailGet != nil {
		if err := a.FailGet(name); err != nil {
			return nil, err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, ErrNotExist)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Put creates or replaces the named blob.
func (a *MemoryArchive) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.FailPut != nil {
		if err := a.FailPut(name); err != nil {
			return err
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	a.blobs[name] = cp
	a.PutCount[name]++
	return nil
}

// List returns the names of all blobs starting with prefix, sorted.
func (a *MemoryArchive) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.FailList != nil {
		return nil, a.FailList
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	var names []string
	for name := range a.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Len returns the number of stored blobs.
func (a *MemoryArchive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blobs)
}

// TotalPuts returns the total number of successful Put calls.
func (a *MemoryArchive) TotalPuts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	total := 0
	for _, n := range a.PutCount {
		total += n
	}
	return total
}
