package verification

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	dErrors "deedblock/pkg/domain-errors"
)

// LogSender writes codes to the log instead of an SMS gateway. Local and
// test environments only.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendCode(_ context.Context, destination, code string) error {
	s.Logger.Info("verification code issued", "destination", maskDestination(destination), "code", code)
	return nil
}

var paymentIDPattern = regexp.MustCompile(`^\d{7}$`)

// MockPaymentGateway approves any well-formed payment reference. Stands in
// for the treasury integration.
type MockPaymentGateway struct{}

func (MockPaymentGateway) VerifyPayment(_ context.Context, paymentID string) error {
	if !paymentIDPattern.MatchString(paymentID) {
		return dErrors.NewField(dErrors.CodeValidation, "payment_id", "payment id must be exactly 7 digits")
	}
	return nil
}

// MockFingerprintVerifier accepts any non-empty sample for a well-formed
// Aadhar. Stands in for the biometric device integration.
type MockFingerprintVerifier struct{}

func (MockFingerprintVerifier) VerifySample(_ context.Context, aadhar string, sample []byte) error {
	if len(aadhar) != 12 {
		return dErrors.NewField(dErrors.CodeValidation, "aadhar", "aadhar must be exactly 12 digits")
	}
	if len(sample) == 0 {
		return dErrors.New(dErrors.CodeValidation, "empty fingerprint sample")
	}
	return nil
}

func maskDestination(destination string) string {
	if len(destination) <= 4 {
		return strings.Repeat("*", len(destination))
	}
	return strings.Repeat("*", len(destination)-4) + destination[len(destination)-4:]
}
