package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"deedblock/internal/registration/models"
	"deedblock/pkg/platform/sentinel"
)

// resignRefs refreshes the signed URL of every stored slot in the draft.
// Slots whose backing object is gone are emptied so the client never renders
// a reference that cannot be served; transient re-sign failures keep the
// stale URL, which degrades to a broken link instead of a lost upload.
func (s *Service) resignRefs(ctx context.Context, draft *models.Draft) {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	resign := func(slot *models.FileSlot) {
		path, ok := slot.StoredPath()
		if !ok {
			return
		}
		g.Go(func() error {
			start := time.Now()
			url, err := s.objects.Resign(ctx, path)
			s.metrics.ObserveStorageOp("resign", time.Since(start))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				s.metrics.HydrationDrops.Inc()
				s.logger.Warn("stored object gone, dropping reference", "path", path)
				*slot = models.EmptySlot()
			case err != nil:
				s.logger.Warn("re-signing stored object failed, keeping stale url",
					"path", path, "error", err)
			default:
				slot.Ref.URL = url
			}
			return nil
		})
	}

	for _, key := range models.DocumentKeys {
		slot, _ := draft.Documents.Slot(key)
		resign(slot)
	}
	for i := range draft.Photos {
		resign(&draft.Photos[i])
	}

	_ = g.Wait()
}
