package submission

import (
	"time"

	"deedblock/internal/fees"
	id "deedblock/pkg/domain"
)

// ManifestFile is one finalized file: its content hash in the permanent
// store plus enough metadata to render a receipt.
type ManifestFile struct {
	Hash        string `json:"hash"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// ManifestParty is the verified identity snapshot of one side of the
// conveyance at submission time.
type ManifestParty struct {
	Aadhar              string `json:"aadhar"`
	Phone               string `json:"phone"`
	OTPVerified         bool   `json:"otp_verified"`
	FingerprintVerified bool   `json:"fingerprint_verified"`
	AadharOTPVerified   bool   `json:"aadhar_otp_verified"`
}

// Manifest is the immutable record of everything a submission contained.
// File bytes live in the content store; the manifest carries only hashes.
type Manifest struct {
	State    string `json:"state"`
	District string `json:"district"`
	Taluka   string `json:"taluka"`
	Village  string `json:"village"`

	PropertyMode   id.PropertyIDMode `json:"property_mode"`
	PropertyNumber string            `json:"property_number"`

	TransactionType     id.TransactionType `json:"transaction_type"`
	ConsiderationAmount int64              `json:"consideration_amount"`
	Fees                fees.Breakdown     `json:"fees"`

	Seller ManifestParty `json:"seller"`
	Buyer  ManifestParty `json:"buyer"`

	Documents map[string]ManifestFile `json:"documents"`
	Photos    []ManifestFile          `json:"photos"`

	PaymentID string `json:"payment_id"`
}

// Status is the lifecycle state of a finalized registration.
type Status string

const (
	// StatusSubmitted: the record is durable and awaiting registrar review.
	StatusSubmitted Status = "submitted"
)

// Registration is a finalized submission. The manifest refs are content-store
// hashes of the document and photo listings, so the listings can be fetched
// and verified independently of this record.
type Registration struct {
	ID                  id.SubmissionID `json:"id"`
	OwnerID             id.OwnerID      `json:"owner_id"`
	Manifest            Manifest        `json:"manifest"`
	DocumentManifestRef string          `json:"document_manifest_ref"`
	PhotoManifestRef    string          `json:"photo_manifest_ref"`
	Status              Status          `json:"status"`
	SubmittedAt         time.Time       `json:"submitted_at"`
}
