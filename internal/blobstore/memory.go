package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory BlobStore fake for executor pipeline tests.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string]Object
	FailNext bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, jobID string, index int, obj Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailNext {
		s.FailNext = false
		return "", fmt.Errorf("blobstore: simulated write failure")
	}

	url := fmt.Sprintf("mem://%s/%d", jobID, index)
	s.Objects[url] = obj
	return url, nil
}
