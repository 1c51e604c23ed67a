package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"deedblock/internal/location"
	"deedblock/internal/platform/metrics"
	"deedblock/internal/platform/middleware"
	"deedblock/internal/ratelimit"
	"deedblock/internal/registration/models"
	"deedblock/internal/registration/service"
	"deedblock/internal/submission"
	"deedblock/internal/transport/http/shared"
	"deedblock/internal/verification"
	"deedblock/internal/wizard"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

// Handler serves the registration draft surface: the draft itself, its file
// slots, wizard navigation, verification challenges and final submission.
type Handler struct {
	logger       *slog.Logger
	drafts       *service.Service
	wizard       *wizard.Controller
	pipeline     *submission.Pipeline
	verify       *verification.Service
	finalized    submission.Store
	dataset      *location.Dataset
	limiter      *ratelimit.Limiter
	metrics      *metrics.Metrics
	jwtValidator middleware.TokenValidator
}

func New(
	drafts *service.Service,
	wizardCtl *wizard.Controller,
	pipeline *submission.Pipeline,
	verify *verification.Service,
	finalized submission.Store,
	dataset *location.Dataset,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
	jwtValidator middleware.TokenValidator,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		logger:       logger,
		drafts:       drafts,
		wizard:       wizardCtl,
		pipeline:     pipeline,
		verify:       verify,
		finalized:    finalized,
		dataset:      dataset,
		limiter:      limiter,
		metrics:      m,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the /v1 routes with the standard middleware chain.
func (h *Handler) Register(r chi.Router) {
	v1 := chi.NewRouter()
	v1.Use(middleware.Recovery(h.logger))
	v1.Use(middleware.RequestID)
	v1.Use(middleware.RequestTime)
	v1.Use(middleware.Logger(h.logger))
	v1.Use(middleware.Timeout(30 * time.Second))
	v1.Use(middleware.ContentTypeJSON)
	v1.Use(middleware.Latency(h.metrics))
	v1.Use(middleware.Device)
	v1.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	v1.Get("/draft", h.handleGetDraft)
	v1.Put("/draft", h.handleUpdateDraft)
	v1.Post("/draft/step/next", h.handleStepNext)
	v1.Post("/draft/step/prev", h.handleStepPrev)
	v1.Post("/draft/reset", h.handleReset)

	v1.Post("/draft/documents/{key}", h.handleUploadDocument)
	v1.Delete("/draft/documents/{key}", h.handleRemoveDocument)
	v1.Post("/draft/photos", h.handleUploadPhoto)
	v1.Delete("/draft/photos/{index}", h.handleRemovePhoto)

	if h.limiter != nil {
		v1.With(h.limiter.VerifyRequests).Post("/verify/{kind}/request", h.handleVerifyRequest)
	} else {
		v1.Post("/verify/{kind}/request", h.handleVerifyRequest)
	}
	v1.Post("/verify/{kind}/confirm", h.handleVerifyConfirm)

	v1.Post("/submit", h.handleSubmit)
	v1.Get("/registrations", h.handleListRegistrations)
	v1.Get("/registrations/{id}", h.handleGetRegistration)

	v1.Get("/locations/options", h.handleLocationOptions)

	r.Mount("/v1", v1)
}

// owner pulls the authenticated owner out of the request context. RequireAuth
// guarantees it is set; the nil check guards a misconfigured route.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (id.OwnerID, bool) {
	ownerID := requestcontext.OwnerID(r.Context())
	if ownerID.IsNil() {
		h.logger.ErrorContext(r.Context(), "owner missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(r.Context()),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.OwnerID{}, false
	}
	return ownerID, true
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	result, err := h.drafts.Load(ctx, ownerID)
	if err != nil {
		h.logger.ErrorContext(ctx, "loading draft failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{
		Draft:            result.Draft,
		AutosaveDisabled: result.AutosaveDisabled,
	})
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req updateDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	draft, err := h.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		return req.apply(d, h.dataset)
	})
	if err != nil {
		h.logWriteFailure(ctx, "updating draft failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleStepNext(w http.ResponseWriter, r *http.Request) {
	h.stepTransition(w, r, h.wizard.Next)
}

func (h *Handler) handleStepPrev(w http.ResponseWriter, r *http.Request) {
	h.stepTransition(w, r, h.wizard.Prev)
}

func (h *Handler) stepTransition(w http.ResponseWriter, r *http.Request, move func(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error)) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	draft, err := move(ctx, ownerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	scope, err := wizard.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	draft, err := h.wizard.Reset(ctx, ownerID, scope)
	if err != nil {
		h.logWriteFailure(ctx, "resetting draft failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleLocationOptions(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.owner(w, r); !ok {
		return
	}

	q := r.URL.Query()
	state := q.Get("state")
	district := q.Get("district")
	taluka := q.Get("taluka")
	village := q.Get("village")

	var resp locationOptionsResponse
	var err error
	switch {
	case state == "":
		resp.States = h.dataset.States()
	case district == "":
		resp.Districts, err = h.dataset.Districts(state)
	case taluka == "":
		resp.Talukas, err = h.dataset.Mandals(state, district)
	case village == "":
		resp.Villages, err = h.dataset.Villages(state, district, taluka)
	default:
		mode := id.PropertyBySurveyNumber
		if q.Get("property_mode") != "" {
			mode, err = id.ParsePropertyIDMode(q.Get("property_mode"))
			if err != nil {
				shared.WriteError(w, err)
				return
			}
		}
		resp.PropertyNumbers, err = h.dataset.PropertyNumbers(state, district, taluka, village, mode)
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "unknown location"))
		return
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) logWriteFailure(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
}
