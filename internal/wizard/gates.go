package wizard

import (
	"deedblock/internal/registration/models"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

// GateDeedDetails is the step 1 completion check: a full location cascade,
// exactly one property number for the active mode, a transaction type, and
// syntactically valid party identifiers. Errors are keyed to the first
// failing field so the client can focus it.
func GateDeedDetails(d *models.Draft) error {
	switch {
	case d.Location.State == "":
		return dErrors.NewField(dErrors.CodeValidation, "state", "select a state")
	case d.Location.District == "":
		return dErrors.NewField(dErrors.CodeValidation, "district", "select a district")
	case d.Location.Taluka == "":
		return dErrors.NewField(dErrors.CodeValidation, "taluka", "select a taluka")
	case d.Location.Village == "":
		return dErrors.NewField(dErrors.CodeValidation, "village", "select a village")
	}
	if d.PropertyNumber() == "" {
		field := "survey_number"
		if d.PropertyMode == id.PropertyByDoorNumber {
			field = "door_number"
		}
		return dErrors.NewField(dErrors.CodeValidation, field, "select a property number")
	}
	if !d.TransactionType.IsValid() {
		return dErrors.NewField(dErrors.CodeValidation, "transaction_type", "select a transaction type")
	}
	if err := models.ValidateAadhar("seller_aadhar", d.Seller.Aadhar); err != nil {
		return err
	}
	if err := models.ValidatePhone("seller_phone", d.Seller.Phone); err != nil {
		return err
	}
	if err := models.ValidateAadhar("buyer_aadhar", d.Buyer.Aadhar); err != nil {
		return err
	}
	if err := models.ValidatePhone("buyer_phone", d.Buyer.Phone); err != nil {
		return err
	}
	return nil
}

// GateDocuments is the step 2 completion check: every required document slot
// holds a file, in either representation. Photos are optional.
func GateDocuments(d *models.Draft) error {
	for _, key := range models.DocumentKeys {
		slot, err := d.Documents.Slot(key)
		if err != nil {
			return err
		}
		if !slot.Filled() {
			return dErrors.NewField(dErrors.CodeValidation, string(key), "attach this document")
		}
	}
	return nil
}

// GateSubmission is the final check before the pipeline runs: the payment
// reference must be well-formed and verified, and the declaration accepted.
func GateSubmission(d *models.Draft) error {
	if err := models.ValidatePaymentID(d.PaymentID); err != nil {
		return err
	}
	if !d.PaymentIDVerified {
		return dErrors.NewField(dErrors.CodeValidation, "payment_id", "verify the payment reference first")
	}
	if !d.DeclarationChecked {
		return dErrors.NewField(dErrors.CodeValidation, "declaration", "accept the declaration")
	}
	return nil
}
