package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory ObjectStore used by tests
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]Object
}

func NewMemoryStore(buckets ...string) *MemoryStore {
	s := &MemoryStore{buckets: make(map[string]map[string]Object)}
	for _, b := range buckets {
		s.buckets[b] = make(map[string]Object)
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, ErrNotFound
	}

	var infos []ObjectInfo
	for path, obj := range objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, ObjectInfo{
				Path:        path,
				Size:        int64(len(obj.Data)),
				ContentType: obj.ContentType,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos, nil
}

func (s *MemoryStore) Download(ctx context.Context, bucket, path string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return nil, ErrNotFound
	}
	obj, ok := objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	cp := Object{Data: append([]byte(nil), obj.Data...), ContentType: obj.ContentType}
	return &cp, nil
}

func (s *MemoryStore) Upload(ctx context.Context, bucket, path string, data []byte, contentType string, upsert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return ErrNotFound
	}
	if _, exists := objects[path]; exists && !upsert {
		return ErrAlreadyExists
	}
	objects[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	objects, ok := s.buckets[bucket]
	if !ok {
		return ErrNotFound
	}
	if _, exists := objects[path]; !exists {
		return ErrNotFound
	}
	delete(objects, path)
	return nil
}

func (s *MemoryStore) ListBuckets(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.buckets))
	for b := range s.buckets {
		names = append(names, b)
	}
	sort.Strings(names)
	return names, nil
}
