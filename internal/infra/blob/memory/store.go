// Package memory keeps blobs in process memory. It backs the import
// pipeline in tests and in deployments that configure no external store.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"campuscore/internal/blob/core"
)

type object struct {
	info    core.Info
	payload []byte
}

// snapshot copies the object's metadata so callers cannot reach the map
// entry through the returned Info.
func (o object) snapshot() core.Info {
	info := o.info
	if o.info.Metadata != nil {
		info.Metadata = make(map[string]string, len(o.info.Metadata))
		for k, v := range o.info.Metadata {
			info.Metadata[k] = v
		}
	}
	return info
}

// Store is a core.Store over a plain map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New returns an empty in-memory blob store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new blob. Import file keys are content addressed, so an
// existing key is an error rather than an overwrite.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	payload, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	obj := object{
		info: core.Info{
			Key:          key,
			Size:         int64(len(payload)),
			ContentType:  opts.ContentType,
			LastModified: time.Now().UTC(),
		},
		payload: payload,
	}
	if opts.Metadata != nil {
		obj.info.Metadata = make(map[string]string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			obj.info.Metadata[k] = v
		}
	}
	s.objects[key] = obj
	return obj.snapshot(), nil
}

// Get returns blob metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	payload := append([]byte(nil), obj.payload...)
	return obj.snapshot(), io.NopCloser(bytes.NewReader(payload)), nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	return obj.snapshot(), nil
}

// Delete removes the blob, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns every blob under prefix, ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Info
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PresignURL is unsupported; nothing outside the process can reach a
// memory blob.
func (s *Store) PresignURL(_ context.Context, _ string, _ core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}
