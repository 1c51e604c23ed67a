package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deedblock/internal/submission"
	"deedblock/internal/transport/http/shared"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
	"deedblock/pkg/requestcontext"
)

type submitResponse struct {
	Registration *submission.Registration `json:"registration"`
}

type listRegistrationsResponse struct {
	Registrations []*submission.Registration `json:"registrations"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	reg, err := h.pipeline.Submit(ctx, ownerID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
			h.logger.ErrorContext(ctx, "submission failed",
				"request_id", requestcontext.RequestID(ctx),
				"owner_id", ownerID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, submitResponse{Registration: reg})
}

func (h *Handler) handleListRegistrations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	regs, err := h.finalized.ListByOwner(ctx, ownerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, listRegistrationsResponse{Registrations: regs})
}

func (h *Handler) handleGetRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	regID, err := id.ParseSubmissionID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := h.finalized.Get(ctx, regID)
	if errors.Is(err, sentinel.ErrNotFound) {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration not found"))
		return
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	// Registrations are visible only to their owner.
	if reg.OwnerID != ownerID {
		shared.WriteError(w, dErrors.New(dErrors.CodeNotFound, "registration not found"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, submitResponse{Registration: reg})
}
