package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "deedblock/pkg/domain"
	dErrors "deedblock/pkg/domain-errors"
	"deedblock/pkg/platform/sentinel"
)

// DefaultChallengeTTL is how long an issued code stays confirmable.
const DefaultChallengeTTL = 5 * time.Minute

// Sender delivers one-time codes. Production wires an SMS gateway; tests and
// local runs use the logging sender.
type Sender interface {
	SendCode(ctx context.Context, destination, code string) error
}

// PaymentGateway checks a payment reference with the treasury system.
type PaymentGateway interface {
	VerifyPayment(ctx context.Context, paymentID string) error
}

// FingerprintVerifier matches a captured biometric sample against the
// party's Aadhar record.
type FingerprintVerifier interface {
	VerifySample(ctx context.Context, aadhar string, sample []byte) error
}

// Service issues and confirms verification challenges. Codes are stored
// bcrypt-hashed and are single-use; a wrong code leaves the challenge live
// until it expires.
type Service struct {
	store        ChallengeStore
	sender       Sender
	gateway      PaymentGateway
	fingerprints FingerprintVerifier
	ttl          time.Duration
	logger       *slog.Logger
}

func New(store ChallengeStore, sender Sender, gateway PaymentGateway, fingerprints FingerprintVerifier, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Service{
		store:        store,
		sender:       sender,
		gateway:      gateway,
		fingerprints: fingerprints,
		ttl:          ttl,
		logger:       logger,
	}
}

// Request starts a verification. For OTP kinds a fresh code is generated,
// hashed, stored and sent to destination; requesting again replaces the
// outstanding code. Fingerprint and payment kinds have no request step.
func (s *Service) Request(ctx context.Context, ownerID id.OwnerID, kind Kind, destination string) error {
	switch kind.Method {
	case MethodOTP, MethodAadharOTP:
	case MethodFingerprint, MethodPayment:
		return nil
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "unknown verification method: %s", kind.Method)
	}

	if destination == "" {
		return dErrors.New(dErrors.CodeValidation, "no destination on file for this verification")
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.store.Put(ctx, ownerID, kind, string(hash), s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "storing challenge failed")
	}
	if err := s.sender.SendCode(ctx, destination, code); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "sending code failed")
	}
	s.logger.Info("verification challenge issued", "owner_id", ownerID, "kind", kind.String())
	return nil
}

// ConfirmCode checks a one-time code. On success the challenge is consumed.
func (s *Service) ConfirmCode(ctx context.Context, ownerID id.OwnerID, kind Kind, code string) error {
	switch kind.Method {
	case MethodOTP, MethodAadharOTP:
	default:
		return dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a code verification", kind.String())
	}

	hash, err := s.store.Get(ctx, ownerID, kind)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, "no active code, request a new one")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "loading challenge failed")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return dErrors.New(dErrors.CodeValidation, "incorrect code")
	}
	if err := s.store.Delete(ctx, ownerID, kind); err != nil {
		s.logger.Warn("consuming challenge failed", "owner_id", ownerID, "kind", kind.String(), "error", err)
	}
	return nil
}

// ConfirmFingerprint matches a biometric sample for the party's Aadhar.
func (s *Service) ConfirmFingerprint(ctx context.Context, aadhar string, sample []byte) error {
	if err := s.fingerprints.VerifySample(ctx, aadhar, sample); err != nil {
		return err
	}
	return nil
}

// ConfirmPayment checks the payment reference with the gateway.
func (s *Service) ConfirmPayment(ctx context.Context, paymentID string) error {
	return s.gateway.VerifyPayment(ctx, paymentID)
}

// generateCode returns a uniformly random 6-digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
