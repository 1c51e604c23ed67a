// Package fees derives the payable amounts for a registration from the
// government value, the state's stamp duty rate, and the transaction type.
// Derivation is pure; the wizard writes the results back into the draft as
// display-only fields.
package fees

import (
	id "deedblock/pkg/domain"
)

// Registration fee is 0.1% of the government value with a floor.
const (
	registrationFeeRate  = 0.001
	registrationFeeFloor = 1000
	defaultDeedDocFee    = 200
)

// deedDocFees maps transaction types to the fixed deed documentation fee.
var deedDocFees = map[id.TransactionType]int64{
	id.TransactionGift:      1500,
	id.TransactionPartition: 500,
	id.TransactionMortgage:  500,
	id.TransactionExchange:  500,
	id.TransactionSale:      200,
	id.TransactionLease:     200,
}

// Breakdown is the full derived fee set for one registration.
type Breakdown struct {
	GovtValue       int64   `json:"govt_value"`
	StampDutyRate   float64 `json:"stamp_duty_rate"`
	StampDuty       int64   `json:"stamp_duty"`
	RegistrationFee int64   `json:"registration_fee"`
	DeedDocFee      int64   `json:"deed_doc_fee"`
	TotalPayable    int64   `json:"total_payable"`
}

// Derive computes the fee breakdown. It is recomputed whenever the
// government value, the stamp duty rate, or the transaction type changes.
func Derive(govtValue int64, stampDutyRate float64, txType id.TransactionType) Breakdown {
	stampDuty := int64(float64(govtValue) * stampDutyRate / 100)

	registrationFee := int64(float64(govtValue) * registrationFeeRate)
	if registrationFee < registrationFeeFloor {
		registrationFee = registrationFeeFloor
	}

	deedDocFee, ok := deedDocFees[txType]
	if !ok {
		deedDocFee = defaultDeedDocFee
	}

	return Breakdown{
		GovtValue:       govtValue,
		StampDutyRate:   stampDutyRate,
		StampDuty:       stampDuty,
		RegistrationFee: registrationFee,
		DeedDocFee:      deedDocFee,
		TotalPayable:    stampDuty + registrationFee + deedDocFee,
	}
}

// DeedDocFee exposes the per-transaction-type fixed fee for display.
func DeedDocFee(txType id.TransactionType) int64 {
	if fee, ok := deedDocFees[txType]; ok {
		return fee
	}
	return defaultDeedDocFee
}
