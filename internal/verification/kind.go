package verification

import (
	dErrors "deedblock/pkg/domain-errors"
)

// Role names the draft party a verification applies to.
type Role string

const (
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// Method is the verification mechanism.
type Method string

const (
	// MethodOTP is a one-time code sent to the party's phone number.
	MethodOTP Method = "otp"
	// MethodAadharOTP is a one-time code sent to the Aadhar-linked number.
	MethodAadharOTP Method = "aadhar_otp"
	// MethodFingerprint is a biometric capture checked against the Aadhar
	// record.
	MethodFingerprint Method = "fingerprint"
	// MethodPayment checks the payment reference with the treasury gateway.
	MethodPayment Method = "payment"
)

// Kind is a concrete verification target: a method bound to a party, or the
// party-less payment check.
type Kind struct {
	Role   Role
	Method Method
}

func (k Kind) String() string {
	if k.Method == MethodPayment {
		return string(MethodPayment)
	}
	return string(k.Role) + "_" + string(k.Method)
}

var kinds = map[string]Kind{
	"seller_otp":         {RoleSeller, MethodOTP},
	"buyer_otp":          {RoleBuyer, MethodOTP},
	"seller_aadhar_otp":  {RoleSeller, MethodAadharOTP},
	"buyer_aadhar_otp":   {RoleBuyer, MethodAadharOTP},
	"seller_fingerprint": {RoleSeller, MethodFingerprint},
	"buyer_fingerprint":  {RoleBuyer, MethodFingerprint},
	"payment":            {Method: MethodPayment},
}

// ParseKind resolves the path form of a verification kind.
func ParseKind(s string) (Kind, error) {
	k, ok := kinds[s]
	if !ok {
		return Kind{}, dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification kind: %s", s)
	}
	return k, nil
}
