package submission

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"sync"

	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/circuit"
)

// ContentStore is the permanent, content-addressed home of finalized files.
// Put is idempotent: storing the same bytes twice yields the same address.
type ContentStore interface {
	Put(ctx context.Context, data []byte) (string, error)
}

// ContentHash is the address of a blob: hex-encoded SHA-256 of its bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoryContentStore keeps blobs in memory, for tests and local runs.
type MemoryContentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryContentStore() *MemoryContentStore {
	return &MemoryContentStore{blobs: make(map[string][]byte)}
}

func (s *MemoryContentStore) Put(_ context.Context, data []byte) (string, error) {
	hash := ContentHash(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[hash]; !ok {
		s.blobs[hash] = append([]byte(nil), data...)
	}
	return hash, nil
}

// Get returns the blob at hash. Test helper.
func (s *MemoryContentStore) Get(hash string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[hash]
	return data, ok
}

// Len reports the number of stored blobs. Test helper.
func (s *MemoryContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// HTTPContentStore talks to the content store service over HTTP. The blob is
// PUT at its own hash; the server rejects mismatches. A circuit breaker
// fails submissions fast while the store is down instead of stacking up
// timed-out uploads.
type HTTPContentStore struct {
	baseURL string
	client  *http.Client
	breaker *circuit.Breaker
}

func NewHTTPContentStore(baseURL string, client *http.Client, breakerOpts ...circuit.Option) *HTTPContentStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPContentStore{
		baseURL: baseURL,
		client:  client,
		breaker: circuit.New("content-store", breakerOpts...),
	}
}

func (s *HTTPContentStore) Put(ctx context.Context, data []byte) (string, error) {
	if !s.breaker.Allow() {
		return "", dErrors.New(dErrors.CodeUnavailable, "content store unavailable")
	}

	hash := ContentHash(data)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		fmt.Sprintf("%s/blobs/%s", s.baseURL, hash), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		s.breaker.RecordFailure()
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "content store unreachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		s.breaker.RecordSuccess()
		return hash, nil
	case resp.StatusCode >= 500:
		s.breaker.RecordFailure()
		return "", dErrors.Newf(dErrors.CodeUnavailable, "content store returned %d", resp.StatusCode)
	default:
		return "", dErrors.Newf(dErrors.CodeInternal, "content store rejected blob: %d", resp.StatusCode)
	}
}
