package handler

import (
	"errors"

	"deedblock/internal/location"
	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
)

// updateDraftRequest is the PUT /draft body. Every field is optional;
// present fields are applied through the draft's own mutators so cascade
// clearing and verification invalidation always run, whatever subset the
// client sends.
type updateDraftRequest struct {
	State    *string `json:"state,omitempty"`
	District *string `json:"district,omitempty"`
	Taluka   *string `json:"taluka,omitempty"`
	Village  *string `json:"village,omitempty"`

	PropertyMode   *string `json:"property_mode,omitempty"`
	PropertyNumber *string `json:"property_number,omitempty"`

	TransactionType *string `json:"transaction_type,omitempty"`

	SellerAadhar *string `json:"seller_aadhar,omitempty"`
	SellerPhone  *string `json:"seller_phone,omitempty"`
	BuyerAadhar  *string `json:"buyer_aadhar,omitempty"`
	BuyerPhone   *string `json:"buyer_phone,omitempty"`

	PaymentID          *string `json:"payment_id,omitempty"`
	DeclarationChecked *bool   `json:"declaration_checked,omitempty"`
}

// apply pushes the request into the draft in cascade order: selectors first,
// then the property number (which needs the final location to price), then
// everything independent of location.
func (req *updateDraftRequest) apply(d *models.Draft, dataset *location.Dataset) error {
	if req.State != nil {
		d.SetState(*req.State)
	}
	if req.District != nil {
		d.SetDistrict(*req.District)
	}
	if req.Taluka != nil {
		d.SetTaluka(*req.Taluka)
	}
	if req.Village != nil {
		d.SetVillage(*req.Village)
	}
	if req.PropertyMode != nil {
		mode, err := id.ParsePropertyIDMode(*req.PropertyMode)
		if err != nil {
			return err
		}
		d.SetPropertyMode(mode)
	}
	if req.PropertyNumber != nil {
		if err := selectProperty(d, dataset, *req.PropertyNumber); err != nil {
			return err
		}
	}
	if req.TransactionType != nil {
		txType, err := id.ParseTransactionType(*req.TransactionType)
		if err != nil {
			return err
		}
		d.SetTransactionType(txType)
	}
	if req.SellerAadhar != nil {
		d.Seller.SetAadhar(*req.SellerAadhar)
	}
	if req.SellerPhone != nil {
		d.Seller.SetPhone(*req.SellerPhone)
	}
	if req.BuyerAadhar != nil {
		d.Buyer.SetAadhar(*req.BuyerAadhar)
	}
	if req.BuyerPhone != nil {
		d.Buyer.SetPhone(*req.BuyerPhone)
	}
	if req.PaymentID != nil {
		d.SetPaymentID(*req.PaymentID)
	}
	if req.DeclarationChecked != nil {
		d.DeclarationChecked = *req.DeclarationChecked
	}
	return nil
}

// selectProperty prices the chosen number against the location table. An
// empty number clears the selection.
func selectProperty(d *models.Draft, dataset *location.Dataset, number string) error {
	if number == "" {
		d.SelectProperty("", 0, 0)
		return nil
	}
	loc := d.Location
	govtValue, err := dataset.GovtValue(loc.State, loc.District, loc.Taluka, loc.Village, d.PropertyMode, number)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.NewField(dErrors.CodeValidation, "property_number", "unknown property number for this location")
	}
	if err != nil {
		return err
	}
	rate, err := dataset.StampDutyRate(loc.State)
	if err != nil {
		return err
	}
	d.SelectProperty(number, govtValue, rate)
	return nil
}

// draftResponse wraps the draft with session health for the client.
type draftResponse struct {
	Draft            *models.Draft `json:"draft"`
	AutosaveDisabled bool          `json:"autosave_disabled,omitempty"`
}

// locationOptionsResponse lists the next selector level for the cascade.
type locationOptionsResponse struct {
	States          []string `json:"states,omitempty"`
	Districts       []string `json:"districts,omitempty"`
	Talukas         []string `json:"talukas,omitempty"`
	Villages        []string `json:"villages,omitempty"`
	PropertyNumbers []string `json:"property_numbers,omitempty"`
}

type verifyRequest struct {
	Code   string `json:"code,omitempty"`
	Sample string `json:"sample,omitempty"`
}
