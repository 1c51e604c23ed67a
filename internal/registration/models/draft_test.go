package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
)

func newTestDraft() *Draft {
	return NewDraft(id.OwnerID(uuid.New()))
}

func TestVerificationInvalidation(t *testing.T) {
	t.Run("changing aadhar resets fingerprint and aadhar OTP flags", func(t *testing.T) {
		d := newTestDraft()
		d.Seller.SetAadhar("111122223333")
		d.Seller.FingerprintVerified = true
		d.Seller.AadharOTPVerified = true

		d.Seller.SetAadhar("111122224444")
		assert.False(t, d.Seller.FingerprintVerified)
		assert.False(t, d.Seller.AadharOTPVerified)
	})

	t.Run("re-entering the original value does not restore verification", func(t *testing.T) {
		d := newTestDraft()
		d.Seller.SetAadhar("111122223333")
		d.Seller.FingerprintVerified = true

		d.Seller.SetAadhar("999988887777")
		d.Seller.SetAadhar("111122223333")
		assert.False(t, d.Seller.FingerprintVerified, "verification is re-earned, not cached by value")
	})

	t.Run("changing phone resets only the phone OTP flag", func(t *testing.T) {
		d := newTestDraft()
		d.Buyer.SetPhone("9876543210")
		d.Buyer.OTPVerified = true
		d.Buyer.FingerprintVerified = true

		d.Buyer.SetPhone("9876543211")
		assert.False(t, d.Buyer.OTPVerified)
		assert.True(t, d.Buyer.FingerprintVerified, "aadhar-bound flag untouched by phone change")
	})

	t.Run("setting the same value is a no-op", func(t *testing.T) {
		d := newTestDraft()
		d.Seller.SetAadhar("111122223333")
		d.Seller.FingerprintVerified = true
		d.Seller.SetAadhar("111122223333")
		assert.True(t, d.Seller.FingerprintVerified)
	})
}

func TestPaymentIDBinding(t *testing.T) {
	d := newTestDraft()
	d.SetPaymentID("1234567")
	d.PaymentIDVerified = true

	d.SetPaymentID("7654321")
	assert.False(t, d.PaymentIDVerified, "verification is bound to the exact string checked")

	d.PaymentIDVerified = true
	d.SetPaymentID("7654321")
	assert.True(t, d.PaymentIDVerified, "same value is a no-op")
}

func TestLocationCascade(t *testing.T) {
	d := newTestDraft()
	d.SetState("Telangana")
	d.SetDistrict("Rangareddy")
	d.SetTaluka("Maheshwaram")
	d.SetVillage("Tukkuguda")
	d.SetTransactionType(id.TransactionSale)
	d.SelectProperty("124/A", 1_000_000, 6.0)
	require.NotZero(t, d.Fees.TotalPayable)

	d.SetState("Andhra Pradesh")

	assert.Empty(t, d.Location.District)
	assert.Empty(t, d.Location.Taluka)
	assert.Empty(t, d.Location.Village)
	assert.Empty(t, d.SurveyNumber)
	assert.Empty(t, d.DoorNumber)
	assert.Zero(t, d.ConsiderationAmount)
	assert.Zero(t, d.Fees.TotalPayable)
	assert.Zero(t, d.Fees.StampDuty)
}

func TestLocationCascade_MidLevel(t *testing.T) {
	d := newTestDraft()
	d.SetState("Telangana")
	d.SetDistrict("Rangareddy")
	d.SetTaluka("Maheshwaram")
	d.SetVillage("Tukkuguda")
	d.SelectProperty("124/A", 1_000_000, 6.0)

	d.SetDistrict("Hyderabad")
	assert.Equal(t, "Telangana", d.Location.State, "upstream selector preserved")
	assert.Empty(t, d.Location.Taluka)
	assert.Empty(t, d.Location.Village)
	assert.Zero(t, d.ConsiderationAmount)
}

func TestPropertyModeToggle(t *testing.T) {
	d := newTestDraft()
	d.SetState("Telangana")
	d.SelectProperty("124/A", 1_000_000, 6.0)
	require.Equal(t, "124/A", d.SurveyNumber)
	require.NotZero(t, d.Fees.TotalPayable)

	d.SetPropertyMode(id.PropertyByDoorNumber)

	assert.Empty(t, d.SurveyNumber)
	assert.Empty(t, d.DoorNumber)
	assert.Zero(t, d.ConsiderationAmount)
	assert.Zero(t, d.Fees.TotalPayable)
	assert.Equal(t, "Telangana", d.Location.State, "location survives a mode toggle")
}

func TestSelectProperty_DoorMode(t *testing.T) {
	d := newTestDraft()
	d.SetPropertyMode(id.PropertyByDoorNumber)
	d.SetTransactionType(id.TransactionGift)
	d.SelectProperty("2-34/1", 1_000_000, 6.0)

	assert.Equal(t, "2-34/1", d.DoorNumber)
	assert.Empty(t, d.SurveyNumber)
	assert.Equal(t, int64(60000), d.Fees.StampDuty)
	assert.Equal(t, int64(1500), d.Fees.DeedDocFee)
	assert.Equal(t, int64(62500), d.Fees.TotalPayable)
	assert.Equal(t, "2-34/1", d.PropertyNumber())
}

func TestAddPhotos_Cap(t *testing.T) {
	d := newTestDraft()
	four := make([]FileSlot, 4)
	for i := range four {
		four[i] = InMemorySlot("photo.jpg", "image/jpeg", []byte{1})
	}
	require.NoError(t, d.AddPhotos(four))
	require.Len(t, d.Photos, 4)

	err := d.AddPhotos(four)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.Contains(t, err.Error(), "Maximum 6 photos allowed. 2 photo(s) were not added.")
	assert.Len(t, d.Photos, MaxPhotos, "accepted photos stay attached")
}

func TestRemovePhoto(t *testing.T) {
	d := newTestDraft()
	require.NoError(t, d.AddPhotos([]FileSlot{
		StoredSlot(FileRef{URL: "https://s/u1", Path: "o/photos/p1", Name: "p1.jpg"}),
		InMemorySlot("p2.jpg", "image/jpeg", []byte{1}),
	}))

	path, err := d.RemovePhoto(0)
	require.NoError(t, err)
	assert.Equal(t, "o/photos/p1", path)
	assert.Len(t, d.Photos, 1)

	path, err = d.RemovePhoto(0)
	require.NoError(t, err)
	assert.Empty(t, path, "in-memory photos have no stored path")

	_, err = d.RemovePhoto(5)
	assert.Error(t, err)
}

func TestScopedResets(t *testing.T) {
	build := func() *Draft {
		d := newTestDraft()
		d.SetState("Telangana")
		d.SetDistrict("Rangareddy")
		d.Seller.SetAadhar("111122223333")
		d.Seller.FingerprintVerified = true
		d.Documents.SaleDeed = StoredSlot(FileRef{URL: "https://s/sd", Path: "o/documents/sd", Name: "sd.pdf"})
		_ = d.AddPhotos([]FileSlot{StoredSlot(FileRef{URL: "https://s/p", Path: "o/photos/p", Name: "p.jpg"})})
		d.SetPaymentID("1234567")
		d.PaymentIDVerified = true
		d.DeclarationChecked = true
		return d
	}

	t.Run("deed details reset leaves documents, photos, payment intact", func(t *testing.T) {
		d := build()
		d.ResetDeedDetails()

		assert.Empty(t, d.Location.State)
		assert.Empty(t, d.Seller.Aadhar)
		assert.False(t, d.Seller.FingerprintVerified)
		assert.True(t, d.Documents.SaleDeed.Filled())
		assert.Len(t, d.Photos, 1)
		assert.Equal(t, "1234567", d.PaymentID)
		assert.True(t, d.DeclarationChecked)
	})

	t.Run("documents reset returns stored paths and clears slots", func(t *testing.T) {
		d := build()
		paths := d.ResetDocuments()

		assert.ElementsMatch(t, []string{"o/documents/sd", "o/photos/p"}, paths)
		assert.False(t, d.Documents.SaleDeed.Filled())
		assert.Empty(t, d.Photos)
		assert.Equal(t, "Telangana", d.Location.State, "step 1 data untouched")
		assert.Equal(t, "1234567", d.PaymentID, "step 3 data untouched")
	})

	t.Run("payment reset clears only step 3 fields", func(t *testing.T) {
		d := build()
		d.ResetPayment()

		assert.Empty(t, d.PaymentID)
		assert.False(t, d.PaymentIDVerified)
		assert.False(t, d.DeclarationChecked)
		assert.Equal(t, "Telangana", d.Location.State)
		assert.True(t, d.Documents.SaleDeed.Filled())
	})
}

func TestSyntacticValidators(t *testing.T) {
	assert.NoError(t, ValidateAadhar("seller_aadhar", "111122223333"))
	assert.Error(t, ValidateAadhar("seller_aadhar", "11112222333"))
	assert.Error(t, ValidateAadhar("seller_aadhar", "11112222333a"))

	assert.NoError(t, ValidatePhone("buyer_phone", "9876543210"))
	assert.Error(t, ValidatePhone("buyer_phone", "987654321"))

	assert.NoError(t, ValidatePaymentID("1234567"))
	assert.Error(t, ValidatePaymentID("123456"))
	assert.Error(t, ValidatePaymentID("12345678"))
	assert.Error(t, ValidatePaymentID("123456a"))

	err := ValidateAadhar("seller_aadhar", "bad")
	assert.Equal(t, "seller_aadhar", dErrors.FieldOf(err), "validation errors are keyed to their field")
}

func TestNormalize(t *testing.T) {
	d := newTestDraft()
	d.Step = 9
	d.PropertyMode = "plot"
	// Stored ref missing its URL: stale metadata, must degrade to empty.
	d.Documents.EC = FileSlot{Kind: SlotStored, Ref: FileRef{Path: "o/documents/ec"}}
	// In-memory slot whose bytes did not survive serialization.
	d.Photos = []FileSlot{{Kind: SlotInMemory, Name: "ghost.jpg"}}

	d.Normalize()

	assert.Equal(t, StepDeedDetails, d.Step)
	assert.Equal(t, id.PropertyBySurveyNumber, d.PropertyMode)
	assert.Equal(t, SlotEmpty, d.Documents.EC.Kind)
	assert.Empty(t, d.Photos)
}
