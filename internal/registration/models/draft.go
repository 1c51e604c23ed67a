package models

import (
	"fmt"
	"regexp"
	"time"

	"deedblock/internal/fees"
	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

// MaxPhotos caps the property photo list.
const MaxPhotos = 6

// Wizard steps. Transitions are linear; gates are enforced by the wizard
// service, not here.
const (
	StepDeedDetails   = 1
	StepDocuments     = 2
	StepReviewPayment = 3
)

var (
	aadharPattern  = regexp.MustCompile(`^\d{12}$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
	paymentPattern = regexp.MustCompile(`^\d{7}$`)
)

// Party holds one side of the conveyance with its verification flags.
// The flags are bound to the exact values that were verified: any change to
// Aadhar resets the Aadhar-derived flags, any change to Phone resets the
// phone OTP flag. Re-entering a previously verified value does NOT restore
// the flag; verification is re-earned.
type Party struct {
	Aadhar string `json:"aadhar"`
	Phone  string `json:"phone"`

	OTPVerified         bool `json:"otp_verified"`
	FingerprintVerified bool `json:"fingerprint_verified"`
	AadharOTPVerified   bool `json:"aadhar_otp_verified"`
}

// SetAadhar updates the Aadhar number, invalidating Aadhar-bound verifications
// when the value changes.
func (p *Party) SetAadhar(aadhar string) {
	if p.Aadhar == aadhar {
		return
	}
	p.Aadhar = aadhar
	p.FingerprintVerified = false
	p.AadharOTPVerified = false
}

// SetPhone updates the phone number, invalidating the phone OTP verification
// when the value changes.
func (p *Party) SetPhone(phone string) {
	if p.Phone == phone {
		return
	}
	p.Phone = phone
	p.OTPVerified = false
}

// Location is the cascading property selection. Changing any selector clears
// everything downstream of it.
type Location struct {
	State    string `json:"state"`
	District string `json:"district"`
	Taluka   string `json:"taluka"`
	Village  string `json:"village"`
}

// DocumentSet holds the four required document slots.
type DocumentSet struct {
	SaleDeed   FileSlot `json:"sale_deed"`
	EC         FileSlot `json:"ec"`
	Khata      FileSlot `json:"khata"`
	TaxReceipt FileSlot `json:"tax_receipt"`
}

// Slot returns a pointer to the slot named by key.
func (d *DocumentSet) Slot(key DocumentKey) (*FileSlot, error) {
	switch key {
	case DocSaleDeed:
		return &d.SaleDeed, nil
	case DocEC:
		return &d.EC, nil
	case DocKhata:
		return &d.Khata, nil
	case DocTaxReceipt:
		return &d.TaxReceipt, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document slot: %s", key)
	}
}

// Draft is the single mutable aggregate: one in-progress registration,
// owned exclusively by one authenticated user. One row per owner in the
// draft store; every save fully replaces the previous snapshot.
type Draft struct {
	OwnerID id.OwnerID `json:"owner_id"`
	Step    int        `json:"current_step"`

	Location     Location          `json:"location"`
	PropertyMode id.PropertyIDMode `json:"property_mode"`
	SurveyNumber string            `json:"survey_number"`
	DoorNumber   string            `json:"door_number"`

	TransactionType     id.TransactionType `json:"transaction_type"`
	ConsiderationAmount int64              `json:"consideration_amount"`
	Fees                fees.Breakdown     `json:"fees"`

	Seller Party `json:"seller"`
	Buyer  Party `json:"buyer"`

	Documents DocumentSet `json:"documents"`
	Photos    []FileSlot  `json:"photos"`

	PaymentID          string `json:"payment_id"`
	PaymentIDVerified  bool   `json:"payment_id_verified"`
	DeclarationChecked bool   `json:"declaration_checked"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewDraft returns the initial empty draft for an owner.
func NewDraft(ownerID id.OwnerID) *Draft {
	return &Draft{
		OwnerID:      ownerID,
		Step:         StepDeedDetails,
		PropertyMode: id.PropertyBySurveyNumber,
	}
}

// -----------------------------------------------------------------------------
// Location cascade
// -----------------------------------------------------------------------------

// SetState selects a state, clearing every downstream selector and the
// derived monetary fields.
func (d *Draft) SetState(state string) {
	if d.Location.State == state {
		return
	}
	d.Location.State = state
	d.Location.District = ""
	d.clearFromTaluka()
}

// SetDistrict selects a district, clearing taluka and below.
func (d *Draft) SetDistrict(district string) {
	if d.Location.District == district {
		return
	}
	d.Location.District = district
	d.clearFromTaluka()
}

// SetTaluka selects a taluka (mandal), clearing village and below.
func (d *Draft) SetTaluka(taluka string) {
	if d.Location.Taluka == taluka {
		return
	}
	d.Location.Taluka = taluka
	d.Location.Village = ""
	d.clearPropertySelection()
}

// SetVillage selects a village, clearing the property number selection.
func (d *Draft) SetVillage(village string) {
	if d.Location.Village == village {
		return
	}
	d.Location.Village = village
	d.clearPropertySelection()
}

// SetPropertyMode toggles between survey-number and door-number
// identification. The two modes are mutually exclusive views: toggling
// clears both number fields and all derived monetary fields.
func (d *Draft) SetPropertyMode(mode id.PropertyIDMode) {
	if d.PropertyMode == mode {
		return
	}
	d.PropertyMode = mode
	d.clearPropertySelection()
}

// SelectProperty records a concrete survey/door number with its government
// value and recomputes the fee breakdown.
func (d *Draft) SelectProperty(number string, govtValue int64, stampDutyRate float64) {
	switch d.PropertyMode {
	case id.PropertyByDoorNumber:
		d.DoorNumber = number
		d.SurveyNumber = ""
	default:
		d.SurveyNumber = number
		d.DoorNumber = ""
	}
	d.ConsiderationAmount = govtValue
	d.RecomputeFees(stampDutyRate)
}

// SetTransactionType changes the conveyance kind and recomputes fees using
// the current breakdown's rate.
func (d *Draft) SetTransactionType(txType id.TransactionType) {
	if d.TransactionType == txType {
		return
	}
	d.TransactionType = txType
	d.RecomputeFees(d.Fees.StampDutyRate)
}

// RecomputeFees re-derives the fee breakdown from the current selection.
func (d *Draft) RecomputeFees(stampDutyRate float64) {
	if d.ConsiderationAmount == 0 {
		d.Fees = fees.Breakdown{}
		return
	}
	d.Fees = fees.Derive(d.ConsiderationAmount, stampDutyRate, d.TransactionType)
}

func (d *Draft) clearFromTaluka() {
	d.Location.Taluka = ""
	d.Location.Village = ""
	d.clearPropertySelection()
}

func (d *Draft) clearPropertySelection() {
	d.SurveyNumber = ""
	d.DoorNumber = ""
	d.ConsiderationAmount = 0
	d.Fees = fees.Breakdown{}
}

// -----------------------------------------------------------------------------
// Payment
// -----------------------------------------------------------------------------

// SetPaymentID updates the payment reference. Verification is bound to the
// exact string that was checked, so any change resets the flag.
func (d *Draft) SetPaymentID(paymentID string) {
	if d.PaymentID == paymentID {
		return
	}
	d.PaymentID = paymentID
	d.PaymentIDVerified = false
}

// -----------------------------------------------------------------------------
// Photos
// -----------------------------------------------------------------------------

// AddPhotos appends photo slots up to the cap. Excess inputs are rejected,
// not silently truncated: the returned error names how many were not added
// while the accepted ones remain attached.
func (d *Draft) AddPhotos(slots []FileSlot) error {
	room := MaxPhotos - len(d.Photos)
	if room < 0 {
		room = 0
	}
	accepted := slots
	if len(slots) > room {
		accepted = slots[:room]
	}
	d.Photos = append(d.Photos, accepted...)
	if rejected := len(slots) - len(accepted); rejected > 0 {
		return dErrors.Newf(dErrors.CodeValidation,
			"Maximum %d photos allowed. %d photo(s) were not added.", MaxPhotos, rejected)
	}
	return nil
}

// RemovePhoto drops the photo at index, returning its stored path (if any)
// so the caller can delete the underlying object.
func (d *Draft) RemovePhoto(index int) (string, error) {
	if index < 0 || index >= len(d.Photos) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "photo index %d out of range", index)
	}
	path, _ := d.Photos[index].StoredPath()
	d.Photos = append(d.Photos[:index], d.Photos[index+1:]...)
	return path, nil
}

// -----------------------------------------------------------------------------
// Scoped resets
// -----------------------------------------------------------------------------

// ResetDeedDetails clears only the Step 1 fields: location, transaction and
// party data with their verification flags. Documents, photos, payment and
// declaration are untouched. The caller persists the merged snapshot via the
// normal autosave path; a scoped reset never deletes the draft row.
func (d *Draft) ResetDeedDetails() {
	d.Location = Location{}
	d.PropertyMode = id.PropertyBySurveyNumber
	d.SurveyNumber = ""
	d.DoorNumber = ""
	d.TransactionType = ""
	d.ConsiderationAmount = 0
	d.Fees = fees.Breakdown{}
	d.Seller = Party{}
	d.Buyer = Party{}
}

// ResetDocuments clears all document and photo slots, returning the stored
// object paths so the caller can delete the underlying blobs.
func (d *Draft) ResetDocuments() []string {
	paths := d.StoredPaths()
	d.Documents = DocumentSet{}
	d.Photos = nil
	return paths
}

// ResetPayment clears only payment id, its verification, and the declaration.
func (d *Draft) ResetPayment() {
	d.PaymentID = ""
	d.PaymentIDVerified = false
	d.DeclarationChecked = false
}

// StoredPaths lists every stored object path referenced by the draft.
func (d *Draft) StoredPaths() []string {
	var paths []string
	for _, key := range DocumentKeys {
		slot, _ := d.Documents.Slot(key)
		if path, ok := slot.StoredPath(); ok {
			paths = append(paths, path)
		}
	}
	for _, photo := range d.Photos {
		if path, ok := photo.StoredPath(); ok {
			paths = append(paths, path)
		}
	}
	return paths
}

// Normalize repairs slots after deserialization (see FileSlot.Normalize)
// and clamps the step pointer into range.
func (d *Draft) Normalize() {
	for _, key := range DocumentKeys {
		slot, _ := d.Documents.Slot(key)
		*slot = slot.Normalize()
	}
	photos := d.Photos[:0]
	for _, p := range d.Photos {
		if p = p.Normalize(); p.Filled() {
			photos = append(photos, p)
		}
	}
	d.Photos = photos
	if d.Step < StepDeedDetails || d.Step > StepReviewPayment {
		d.Step = StepDeedDetails
	}
	if !d.PropertyMode.IsValid() {
		d.PropertyMode = id.PropertyBySurveyNumber
	}
}

// -----------------------------------------------------------------------------
// Syntactic validation
// -----------------------------------------------------------------------------

// ValidateAadhar checks the 12-digit Aadhar format.
func ValidateAadhar(field, aadhar string) error {
	if !aadharPattern.MatchString(aadhar) {
		return dErrors.NewField(dErrors.CodeValidation, field, "aadhar must be exactly 12 digits")
	}
	return nil
}

// ValidatePhone checks the 10-digit phone format.
func ValidatePhone(field, phone string) error {
	if !phonePattern.MatchString(phone) {
		return dErrors.NewField(dErrors.CodeValidation, field, "phone must be exactly 10 digits")
	}
	return nil
}

// ValidatePaymentID checks the 7-digit payment reference format.
func ValidatePaymentID(paymentID string) error {
	if !paymentPattern.MatchString(paymentID) {
		return dErrors.NewField(dErrors.CodeValidation, "payment_id", "payment id must be exactly 7 digits")
	}
	return nil
}

// PropertyNumber returns the active identification number for the current mode.
func (d *Draft) PropertyNumber() string {
	if d.PropertyMode == id.PropertyByDoorNumber {
		return d.DoorNumber
	}
	return d.SurveyNumber
}

func (d *Draft) String() string {
	return fmt.Sprintf("draft{owner=%s step=%d}", d.OwnerID, d.Step)
}
