package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"deedblock/internal/objectstore"
	"deedblock/internal/platform/metrics"
	"deedblock/internal/registration/models"
	"deedblock/internal/registration/service"
	"deedblock/internal/wizard"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/audit"
	"deedblock/pkg/requestcontext"
)

// Pipeline finalizes a draft: every attached file is resolved to bytes,
// pushed into the permanent content store, and the resulting manifest is
// written as an immutable registration. Only after the record is durable is
// the draft torn down; any failure before that point leaves the draft
// untouched and resubmittable.
type Pipeline struct {
	drafts    *service.Service
	objects   objectstore.Adapter
	content   ContentStore
	finalized Store
	guard     Guard
	audit     audit.Store
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewPipeline(drafts *service.Service, objects objectstore.Adapter, content ContentStore, finalized Store, guard Guard, auditStore audit.Store, m *metrics.Metrics, logger *slog.Logger) *Pipeline {
	if auditStore == nil {
		auditStore = audit.Nop{}
	}
	return &Pipeline{
		drafts:    drafts,
		objects:   objects,
		content:   content,
		finalized: finalized,
		guard:     guard,
		audit:     auditStore,
		metrics:   m,
		logger:    logger,
		tracer:    otel.Tracer("deedblock/submission"),
	}
}

// Submit runs the full pipeline for the owner's draft.
func (p *Pipeline) Submit(ctx context.Context, ownerID id.OwnerID) (*Registration, error) {
	release, err := p.guard.Acquire(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, span := p.tracer.Start(ctx, "submission.Submit",
		trace.WithAttributes(attribute.String("owner_id", ownerID.String())))
	defer span.End()

	p.metrics.SubmissionsStarted.Inc()
	reg, err := p.submit(ctx, ownerID)
	if err != nil {
		p.metrics.SubmissionsFailed.Inc()
		span.RecordError(err)
		p.recordAudit(ctx, audit.EventSubmissionFailed, ownerID, "", err.Error())
		return nil, err
	}
	p.metrics.SubmissionsFinished.Inc()
	p.recordAudit(ctx, audit.EventRegistrationSubmitted, ownerID, reg.ID.String(), "")
	return reg, nil
}

func (p *Pipeline) submit(ctx context.Context, ownerID id.OwnerID) (*Registration, error) {
	// Push any debounced edit out before reading.
	if err := p.drafts.Flush(ctx, ownerID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "saving draft failed")
	}
	res, err := p.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	draft := res.Draft

	// Every gate must hold at submission time, not just when its step was
	// passed.
	if err := wizard.GateDeedDetails(draft); err != nil {
		return nil, err
	}
	if err := wizard.GateDocuments(draft); err != nil {
		return nil, err
	}
	if err := wizard.GateSubmission(draft); err != nil {
		return nil, err
	}

	documents, err := p.finalizeDocuments(ctx, draft)
	if err != nil {
		return nil, err
	}
	photos, err := p.finalizePhotos(ctx, draft)
	if err != nil {
		return nil, err
	}

	// The manifests themselves are content-addressed: their hashes on the
	// record let any holder fetch and verify the full file listing.
	docsRef, err := p.storeManifest(ctx, "document manifest", documents)
	if err != nil {
		return nil, err
	}
	photosRef, err := p.storeManifest(ctx, "photo manifest", photos)
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		ID:                  id.SubmissionID(uuid.New()),
		OwnerID:             ownerID,
		Manifest:            buildManifest(draft, documents, photos),
		DocumentManifestRef: docsRef,
		PhotoManifestRef:    photosRef,
		Status:              StatusSubmitted,
		SubmittedAt:         requestcontext.Now(ctx),
	}

	saveCtx, span := p.tracer.Start(ctx, "submission.finalize")
	err = p.finalized.Save(saveCtx, reg)
	span.End()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "writing registration failed")
	}

	// The record is durable; now, and only now, tear the draft down. A
	// failed teardown is logged and retried by the owner's next full
	// reset, never surfaced as a failed submission.
	if err := p.drafts.Clear(ctx, ownerID); err != nil {
		p.logger.Error("draft teardown after finalize failed", "owner_id", ownerID, "error", err)
	}
	return reg, nil
}

// finalizeDocuments resolves and uploads the four document slots
// concurrently. Document files are independent and typically the largest
// payloads.
func (p *Pipeline) finalizeDocuments(ctx context.Context, draft *models.Draft) (map[string]ManifestFile, error) {
	ctx, span := p.tracer.Start(ctx, "submission.documents")
	defer span.End()

	results := make(map[string]ManifestFile, len(models.DocumentKeys))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, key := range models.DocumentKeys {
		slot, err := draft.Documents.Slot(key)
		if err != nil {
			return nil, err
		}
		g.Go(func() error {
			file, err := p.finalizeSlot(ctx, string(key), slot)
			if err != nil {
				return err
			}
			mu.Lock()
			results[string(key)] = file
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// finalizePhotos uploads photos strictly in order so the finalized list
// preserves the sequence the owner arranged.
func (p *Pipeline) finalizePhotos(ctx context.Context, draft *models.Draft) ([]ManifestFile, error) {
	ctx, span := p.tracer.Start(ctx, "submission.photos")
	defer span.End()

	photos := make([]ManifestFile, 0, len(draft.Photos))
	for i := range draft.Photos {
		file, err := p.finalizeSlot(ctx, fmt.Sprintf("photo[%d]", i), &draft.Photos[i])
		if err != nil {
			return nil, err
		}
		photos = append(photos, file)
	}
	return photos, nil
}

// finalizeSlot resolves a slot to bytes and stores them. The slot name is
// carried into every error so a failed submission points at the exact file.
func (p *Pipeline) finalizeSlot(ctx context.Context, name string, slot *models.FileSlot) (ManifestFile, error) {
	data, err := p.resolveSlot(ctx, name, slot)
	if err != nil {
		return ManifestFile{}, err
	}
	start := time.Now()
	hash, err := p.content.Put(ctx, data)
	p.metrics.ObserveStorageOp("content_put", time.Since(start))
	if err != nil {
		return ManifestFile{}, dErrors.Wrap(err, dErrors.CodeOf(err), fmt.Sprintf("storing %s failed", name))
	}
	return ManifestFile{
		Hash:        hash,
		Name:        slot.DisplayName(),
		ContentType: slot.MimeType(),
		Size:        int64(len(data)),
	}, nil
}

// storeManifest serializes a manifest section and pushes it into the
// content store, returning its hash.
func (p *Pipeline) storeManifest(ctx context.Context, name string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("serialize %s: %w", name, err)
	}
	start := time.Now()
	hash, err := p.content.Put(ctx, raw)
	p.metrics.ObserveStorageOp("content_put", time.Since(start))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeOf(err), fmt.Sprintf("storing %s failed", name))
	}
	return hash, nil
}

// resolveSlot turns either slot representation into bytes. A slot that
// claims to be filled but cannot produce bytes is an invariant violation,
// reported against the slot by name.
func (p *Pipeline) resolveSlot(ctx context.Context, name string, slot *models.FileSlot) ([]byte, error) {
	switch slot.Kind {
	case models.SlotInMemory:
		if len(slot.Data) == 0 {
			return nil, dErrors.NewField(dErrors.CodeInvariantViolation, name, "file has no content")
		}
		return slot.Data, nil
	case models.SlotStored:
		path, ok := slot.StoredPath()
		if !ok {
			return nil, dErrors.NewField(dErrors.CodeInvariantViolation, name, "file reference is incomplete")
		}
		start := time.Now()
		data, err := p.objects.Download(ctx, path)
		p.metrics.ObserveStorageOp("download", time.Since(start))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("fetching %s failed", name))
		}
		return data, nil
	default:
		return nil, dErrors.NewField(dErrors.CodeInvariantViolation, name, "file slot is empty")
	}
}

func buildManifest(draft *models.Draft, documents map[string]ManifestFile, photos []ManifestFile) Manifest {
	return Manifest{
		State:               draft.Location.State,
		District:            draft.Location.District,
		Taluka:              draft.Location.Taluka,
		Village:             draft.Location.Village,
		PropertyMode:        draft.PropertyMode,
		PropertyNumber:      draft.PropertyNumber(),
		TransactionType:     draft.TransactionType,
		ConsiderationAmount: draft.ConsiderationAmount,
		Fees:                draft.Fees,
		Seller:              manifestParty(draft.Seller),
		Buyer:               manifestParty(draft.Buyer),
		Documents:           documents,
		Photos:              photos,
		PaymentID:           draft.PaymentID,
	}
}

func manifestParty(p models.Party) ManifestParty {
	return ManifestParty{
		Aadhar:              p.Aadhar,
		Phone:               p.Phone,
		OTPVerified:         p.OTPVerified,
		FingerprintVerified: p.FingerprintVerified,
		AadharOTPVerified:   p.AadharOTPVerified,
	}
}

func (p *Pipeline) recordAudit(ctx context.Context, action audit.AuditEvent, ownerID id.OwnerID, subject, detail string) {
	event := audit.Event{
		Category:  action.Category(),
		Timestamp: requestcontext.Now(ctx),
		OwnerID:   ownerID,
		Subject:   subject,
		Action:    string(action),
		Detail:    detail,
		RequestID: requestcontext.RequestID(ctx),
	}
	if err := p.audit.Append(ctx, event); err != nil {
		p.logger.Warn("audit append failed", "action", action, "error", err)
	}
}
