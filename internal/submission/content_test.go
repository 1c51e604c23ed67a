package submission_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deedblock/internal/submission"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/circuit"
)

func TestHTTPContentStore_PutAddressesByHash(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store := submission.NewHTTPContentStore(server.URL, server.Client())
	hash, err := store.Put(context.Background(), []byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, submission.ContentHash([]byte("blob")), hash)
	assert.Equal(t, "/blobs/"+hash, gotPath.Load())
}

func TestHTTPContentStore_ServerErrorsOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := submission.NewHTTPContentStore(server.URL, server.Client())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Put(ctx, []byte("blob"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	}
	before := hits.Load()

	// The breaker is open: the next attempt fails without touching the
	// server.
	_, err := store.Put(ctx, []byte("blob"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
	assert.Equal(t, before, hits.Load())
}

func TestHTTPContentStore_BreakerRecoversAfterCooldown(t *testing.T) {
	var hits atomic.Int32
	failing := atomic.Bool{}
	failing.Store(true)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	store := submission.NewHTTPContentStore(server.URL, server.Client(),
		circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Put(ctx, []byte("blob"))
		require.Error(t, err)
	}
	blocked := hits.Load()
	_, err := store.Put(ctx, []byte("blob"))
	require.Error(t, err)
	require.Equal(t, blocked, hits.Load())

	// Backend heals; after the cooldown the next call goes through and the
	// circuit closes for good.
	failing.Store(false)
	time.Sleep(50 * time.Millisecond)

	hash, err := store.Put(ctx, []byte("blob"))
	require.NoError(t, err)
	assert.Equal(t, submission.ContentHash([]byte("blob")), hash)
	assert.Greater(t, hits.Load(), blocked)

	_, err = store.Put(ctx, []byte("blob"))
	assert.NoError(t, err)
}

func TestHTTPContentStore_ClientErrorIsNotRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	store := submission.NewHTTPContentStore(server.URL, server.Client())
	_, err := store.Put(context.Background(), []byte("blob"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestContentHash(t *testing.T) {
	h := submission.ContentHash([]byte("deed bytes"))
	assert.Len(t, h, 64)
	assert.Equal(t, strings.ToLower(h), h)
	assert.Equal(t, h, submission.ContentHash([]byte("deed bytes")))
	assert.NotEqual(t, h, submission.ContentHash([]byte("other")))
}

func TestMemoryGuard(t *testing.T) {
	guard := submission.NewMemoryGuard()
	owner := id.OwnerID(uuid.New())
	other := id.OwnerID(uuid.New())
	ctx := context.Background()

	release, err := guard.Acquire(ctx, owner)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, owner)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = guard.Acquire(ctx, other)
	assert.NoError(t, err, "owners do not contend with each other")

	release()
	release2, err := guard.Acquire(ctx, owner)
	require.NoError(t, err)
	release2()
}
