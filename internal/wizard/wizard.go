package wizard

import (
	"context"

	"deedblock/internal/registration/models"
	"deedblock/internal/registration/service"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

// Scope selects what a reset touches.
type Scope string

const (
	// ScopeFull tears the whole draft down: stored row, uploaded objects,
	// everything.
	ScopeFull Scope = "full"
	// ScopeDeed clears the step 1 fields only.
	ScopeDeed Scope = "deed"
	// ScopeDocuments clears documents and photos, deleting their objects.
	ScopeDocuments Scope = "documents"
	// ScopePayment clears the step 3 fields only.
	ScopePayment Scope = "payment"
)

// ParseScope resolves the query form of a reset scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeFull, ScopeDeed, ScopeDocuments, ScopePayment:
		return Scope(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown reset scope: %s", s)
	}
}

// Controller drives the three-step flow. Moving forward is gated on the
// current step being complete; moving back never is.
type Controller struct {
	drafts *service.Service
}

func NewController(drafts *service.Service) *Controller {
	return &Controller{drafts: drafts}
}

// Next advances to the following step if the current one passes its gate.
func (c *Controller) Next(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	return c.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		switch d.Step {
		case models.StepDeedDetails:
			if err := GateDeedDetails(d); err != nil {
				return err
			}
		case models.StepDocuments:
			if err := GateDocuments(d); err != nil {
				return err
			}
		default:
			return dErrors.New(dErrors.CodeInvalidInput, "already on the final step")
		}
		d.Step++
		return nil
	})
}

// Prev steps back without any gate; nothing already entered is lost.
func (c *Controller) Prev(ctx context.Context, ownerID id.OwnerID) (*models.Draft, error) {
	return c.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
		if d.Step <= models.StepDeedDetails {
			return dErrors.New(dErrors.CodeInvalidInput, "already on the first step")
		}
		d.Step--
		return nil
	})
}

// Reset applies the requested scope. Scoped resets update the draft in place
// and persist through the normal save path; only the full scope deletes the
// stored row.
func (c *Controller) Reset(ctx context.Context, ownerID id.OwnerID, scope Scope) (*models.Draft, error) {
	switch scope {
	case ScopeFull:
		if err := c.drafts.Clear(ctx, ownerID); err != nil {
			return nil, err
		}
		res, err := c.drafts.Load(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return res.Draft, nil
	case ScopeDeed:
		return c.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
			d.ResetDeedDetails()
			return nil
		})
	case ScopeDocuments:
		return c.drafts.ResetDocuments(ctx, ownerID)
	case ScopePayment:
		return c.drafts.Mutate(ctx, ownerID, func(d *models.Draft) error {
			d.ResetPayment()
			return nil
		})
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown reset scope: %s", scope)
	}
}
