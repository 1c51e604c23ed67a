package domain

import dErrors "deedblock/pkg/domain-errors"

// TransactionType identifies the kind of conveyance being registered.
// Invariant: the value must be one of the supported transaction types.
//
// Construct via ParseTransactionType at trust boundaries; direct casting
// bypasses validation.
type TransactionType string

const (
	TransactionSale      TransactionType = "sale"
	TransactionGift      TransactionType = "gift"
	TransactionPartition TransactionType = "partition"
	TransactionMortgage  TransactionType = "mortgage"
	TransactionExchange  TransactionType = "exchange"
	TransactionLease     TransactionType = "lease"
)

// validTransactionTypes is the single source of truth for valid types.
var validTransactionTypes = map[TransactionType]bool{
	TransactionSale:      true,
	TransactionGift:      true,
	TransactionPartition: true,
	TransactionMortgage:  true,
	TransactionExchange:  true,
	TransactionLease:     true,
}

func (t TransactionType) IsValid() bool {
	return validTransactionTypes[t]
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType constructs a TransactionType from external input.
// Returns CodeInvalidInput when the value is empty or unsupported.
func ParseTransactionType(s string) (TransactionType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "transaction type cannot be empty")
	}
	t := TransactionType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported transaction type: "+s)
	}
	return t, nil
}

// PropertyIDMode selects how a property is identified: by survey number in
// rural records or by door number in urban records. The two modes are
// mutually exclusive views and are never merged.
type PropertyIDMode string

const (
	PropertyBySurveyNumber PropertyIDMode = "survey"
	PropertyByDoorNumber   PropertyIDMode = "door"
)

func (m PropertyIDMode) IsValid() bool {
	return m == PropertyBySurveyNumber || m == PropertyByDoorNumber
}

// ParsePropertyIDMode constructs a PropertyIDMode from external input.
func ParsePropertyIDMode(s string) (PropertyIDMode, error) {
	m := PropertyIDMode(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "property id mode must be survey or door")
	}
	return m, nil
}
