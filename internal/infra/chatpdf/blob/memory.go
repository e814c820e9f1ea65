package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	domain "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	apperrors "github.com/tejasgodse/chatpdf/pkg/errors"
)

// MemoryBlob keeps objects in memory. Useful for tests and local dev
// when no bucket credentials are configured. Presigned URLs are a
// fiction here: they point back at the key itself since nothing serves
// them over HTTP.
type MemoryBlob struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryBlob constructs the fallback blob store.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{blobs: make(map[string][]byte)}
}

// Put stores data under key.
func (s *MemoryBlob) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[key] = cp
	return nil
}

// Get returns a reader for the stored blob.
func (s *MemoryBlob) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, apperrors.Wrap(domain.CodeBlobNotFound, "object not found: "+key, nil)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// PresignPut returns a local pseudo-URL identifying the key.
func (s *MemoryBlob) PresignPut(_ context.Context, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s?op=put&expires=%d", key, time.Now().Add(expires).Unix()), nil
}

// PresignGet returns a local pseudo-URL identifying the key.
func (s *MemoryBlob) PresignGet(_ context.Context, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("memory://%s?op=get&expires=%d", key, time.Now().Add(expires).Unix()), nil
}

var _ domain.Blob = (*MemoryBlob)(nil)
