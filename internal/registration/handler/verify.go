package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deedblock/internal/registration/models"
	"deedblock/internal/transport/http/shared"
	"deedblock/internal/verification"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

func (h *Handler) handleVerifyRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	kind, err := verification.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.drafts.Load(ctx, ownerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	destination, err := challengeDestination(result.Draft, kind)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.verify.Request(ctx, ownerID, kind, destination); err != nil {
		h.logWriteFailure(ctx, "issuing verification challenge failed", err)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleVerifyConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	kind, err := verification.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	var draft *models.Draft
	switch kind.Method {
	case verification.MethodOTP, verification.MethodAadharOTP:
		draft, err = h.confirmCode(ctx, ownerID, kind, req.Code)
	case verification.MethodFingerprint:
		draft, err = h.confirmFingerprint(ctx, ownerID, kind, req.Sample)
	case verification.MethodPayment:
		draft, err = h.confirmPayment(ctx, ownerID)
	default:
		err = dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification method: %s", kind.Method)
	}
	if err != nil {
		h.logWriteFailure(ctx, "verification confirm failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) confirmCode(ctx context.Context, ownerID id.OwnerID, kind verification.Kind, code string) (*models.Draft, error) {
	if err := h.verify.ConfirmCode(ctx, ownerID, kind, code); err != nil {
		return nil, err
	}
	return h.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		party := partyFor(d, kind.Role)
		switch kind.Method {
		case verification.MethodOTP:
			party.OTPVerified = true
		case verification.MethodAadharOTP:
			party.AadharOTPVerified = true
		}
		return nil
	})
}

func (h *Handler) confirmFingerprint(ctx context.Context, ownerID id.OwnerID, kind verification.Kind, sampleB64 string) (*models.Draft, error) {
	sample, err := base64.StdEncoding.DecodeString(sampleB64)
	if err != nil || len(sample) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "missing or malformed biometric sample")
	}

	result, err := h.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	party := partyFor(result.Draft, kind.Role)
	if err := models.ValidateAadhar(string(kind.Role)+"_aadhar", party.Aadhar); err != nil {
		return nil, err
	}
	if err := h.verify.ConfirmFingerprint(ctx, party.Aadhar, sample); err != nil {
		return nil, err
	}
	return h.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		partyFor(d, kind.Role).FingerprintVerified = true
		return nil
	})
}

func (h *Handler) confirmPayment(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	result, err := h.drafts.Load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePaymentID(result.Draft.PaymentID); err != nil {
		return nil, err
	}
	if err := h.verify.ConfirmPayment(ctx, result.Draft.PaymentID); err != nil {
		return nil, err
	}
	return h.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		d.PaymentIDVerified = true
		return nil
	})
}

// challengeDestination picks where the one-time code goes: the party's phone
// for a plain OTP, the Aadhar number for an Aadhar-routed one.
func challengeDestination(d *models.Draft, kind verification.Kind) (string, error) {
	party := partyFor(d, kind.Role)
	switch kind.Method {
	case verification.MethodOTP:
		if err := models.ValidatePhone(string(kind.Role)+"_phone", party.Phone); err != nil {
			return "", err
		}
		return party.Phone, nil
	case verification.MethodAadharOTP:
		if err := models.ValidateAadhar(string(kind.Role)+"_aadhar", party.Aadhar); err != nil {
			return "", err
		}
		return party.Aadhar, nil
	default:
		return "", nil
	}
}

func partyFor(d *models.Draft, role verification.Role) *models.Party {
	if role == verification.RoleBuyer {
		return &d.Buyer
	}
	return &d.Seller
}
