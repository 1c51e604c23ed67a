package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"deedblock/internal/objectstore"
	"deedblock/internal/platform/metrics"
	"deedblock/internal/registration/models"
	"deedblock/internal/registration/store"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

// DefaultDebounce is the autosave coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// Service owns the draft lifecycle: hydration from the store, in-session
// mutation, debounced persistence, and teardown. One session per owner; the
// session holds the working aggregate and the baseline snapshot it diffs
// against before writing.
type Service struct {
	store    store.DraftStore
	objects  objectstore.Adapter
	metrics  *metrics.Metrics
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	sessions map[id.OwnerID]*session
}

// session is the per-owner working state. All access goes through its mutex;
// the autosave timer callback takes the same lock, so a mutation and a flush
// never interleave.
type session struct {
	mu sync.Mutex

	draft    *models.Draft
	baseline []byte
	hydrated bool

	// disabled is set when hydration failed for a reason other than a
	// missing row. The owner keeps a working in-memory draft but nothing
	// is persisted, so a transient store outage cannot clobber the saved
	// snapshot with an empty one.
	disabled bool

	timer   *time.Timer
	pending bool
}

// New constructs the draft service. debounce <= 0 falls back to the default
// window.
func New(st store.DraftStore, objects objectstore.Adapter, m *metrics.Metrics, logger *slog.Logger, debounce time.Duration) *Service {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Service{
		store:    st,
		objects:  objects,
		metrics:  m,
		logger:   logger,
		debounce: debounce,
		sessions: make(map[id.OwnerID]*session),
	}
}

// LoadResult is the hydrated draft plus session health.
type LoadResult struct {
	Draft *models.Draft
	// AutosaveDisabled is true when the saved snapshot could not be read.
	// The draft is a fresh empty one and will not be persisted until the
	// session is cleared or the process restarts.
	AutosaveDisabled bool
}

// Load hydrates the owner's draft, re-signing every stored file reference.
// A missing row yields a fresh empty draft with autosave active.
func (s *Service) Load(ctx context.Context, ownerID id.OwnerID) (*LoadResult, error) {
	sess := s.session(ownerID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.hydrateLocked(ctx, sess, ownerID); err != nil {
		return nil, err
	}
	return &LoadResult{Draft: cloneDraft(sess.draft), AutosaveDisabled: sess.disabled}, nil
}

// Mutate applies fn to the owner's working draft under the session lock and
// schedules a debounced save. The returned draft is a copy safe to render
// without further locking.
func (s *Service) Mutate(ctx context.Context, ownerID id.OwnerID, fn func(*models.Draft) error) (*models.Draft, error) {
	sess := s.session(ownerID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.hydrateLocked(ctx, sess, ownerID); err != nil {
		return nil, err
	}
	if err := fn(sess.draft); err != nil {
		return nil, err
	}
	s.scheduleSaveLocked(sess, ownerID)
	return cloneDraft(sess.draft), nil
}

// Flush persists any pending change immediately, bypassing the debounce
// window. Used before submission so the pipeline reads the latest state.
func (s *Service) Flush(ctx context.Context, ownerID id.OwnerID) error {
	sess := s.session(ownerID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.cancelPendingLocked(sess)
	return s.saveLocked(ctx, sess)
}

// Clear tears the draft down: any pending autosave is cancelled first so a
// debounced write cannot resurrect the row, then the stored row and every
// uploaded object are removed.
func (s *Service) Clear(ctx context.Context, ownerID id.OwnerID) error {
	sess := s.session(ownerID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	s.cancelPendingLocked(sess)

	if err := s.store.Delete(ctx, ownerID); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if err := s.objects.ClearAll(ctx, ownerID); err != nil {
		s.logger.Warn("clearing owner objects failed", "owner_id", ownerID, "error", err)
	}

	sess.draft = models.NewDraft(ownerID)
	sess.baseline = nil
	sess.hydrated = true
	sess.disabled = false
	return nil
}

// -----------------------------------------------------------------------------
// Autosave
// -----------------------------------------------------------------------------

// scheduleSaveLocked arms (or re-arms) the debounce timer. Rapid mutations
// keep pushing the deadline out; one save fires with whatever state the
// session holds at fire time.
func (s *Service) scheduleSaveLocked(sess *session, ownerID id.OwnerID) {
	if sess.disabled {
		return
	}
	if sess.timer != nil {
		sess.timer.Stop()
	}
	sess.pending = true
	sess.timer = time.AfterFunc(s.debounce, func() {
		s.fireSave(ownerID)
	})
}

func (s *Service) fireSave(ownerID id.OwnerID) {
	sess := s.session(ownerID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.pending {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.saveLocked(ctx, sess); err != nil {
		// No retry loop here: the next mutation re-arms the timer and the
		// unchanged baseline makes it write the full snapshot again.
		s.logger.Error("autosave failed, retrying on next mutation", "owner_id", ownerID, "error", err)
		s.metrics.AutosaveFailures.Inc()
	}
}

// saveLocked writes the current snapshot if it differs from the baseline.
// UpdatedAt is stamped only after the diff check so a no-op mutation
// serializes identically to the baseline and is skipped.
func (s *Service) saveLocked(ctx context.Context, sess *session) error {
	sess.pending = false
	if sess.draft == nil || sess.disabled {
		return nil
	}
	raw, err := json.Marshal(sess.draft)
	if err != nil {
		return fmt.Errorf("serialize draft: %w", err)
	}
	if bytes.Equal(raw, sess.baseline) {
		s.metrics.AutosavesSkipped.Inc()
		return nil
	}
	sess.draft.UpdatedAt = requestcontext.Now(ctx)
	raw, err = json.Marshal(sess.draft)
	if err != nil {
		return fmt.Errorf("serialize draft: %w", err)
	}
	if err := s.store.Save(ctx, sess.draft); err != nil {
		return err
	}
	s.metrics.AutosavesFired.Inc()
	sess.baseline = raw
	return nil
}

func (s *Service) cancelPendingLocked(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.pending = false
}

// -----------------------------------------------------------------------------
// Session plumbing
// -----------------------------------------------------------------------------

func (s *Service) session(ownerID id.OwnerID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[ownerID]
	if !ok {
		sess = &session{}
		s.sessions[ownerID] = sess
	}
	return sess
}

func (s *Service) hydrateLocked(ctx context.Context, sess *session, ownerID id.OwnerID) error {
	if sess.hydrated {
		return nil
	}

	draft, err := s.store.Load(ctx, ownerID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		draft = models.NewDraft(ownerID)
		sess.baseline = nil
	case err != nil:
		s.metrics.DraftLoadFailures.Inc()
		s.logger.Warn("draft load failed, starting empty with autosave disabled",
			"owner_id", ownerID, "error", err)
		sess.draft = models.NewDraft(ownerID)
		sess.hydrated = true
		sess.disabled = true
		return nil
	default:
		s.metrics.DraftLoads.Inc()
		s.resignRefs(ctx, draft)
		draft.Normalize()
		raw, merr := json.Marshal(draft)
		if merr != nil {
			return fmt.Errorf("serialize draft: %w", merr)
		}
		sess.baseline = raw
		s.sweepOrphans(ctx, ownerID, draft)
	}

	sess.draft = draft
	sess.hydrated = true
	return nil
}

// cloneDraft returns a render-safe copy. The photo slice is copied; slot byte
// buffers are shared but treated as immutable once attached.
func cloneDraft(d *models.Draft) *models.Draft {
	c := *d
	c.Photos = append([]models.FileSlot(nil), d.Photos...)
	return &c
}

// unavailable wraps an infrastructure failure for the transport layer.
func unavailable(msg string, err error) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
}
