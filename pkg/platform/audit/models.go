package audit

import (
	"context"
	"time"

	id "deedblock/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Registrations are land-title records; these need tamper-proof storage
	// and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring and
	// forensics.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	OwnerID   id.OwnerID
	// Subject is the entity the action touched: a registration id, a
	// document slot, a verification kind.
	Subject string
	Action  string
	// Detail carries a short human-readable qualifier (reset scope,
	// document key, failure reason).
	Detail    string
	RequestID string
}

type AuditEvent string

const (
	// Draft lifecycle events
	EventDraftCreated AuditEvent = "draft_created"
	EventDraftCleared AuditEvent = "draft_cleared"
	EventStepReset    AuditEvent = "step_reset"

	// File events
	EventFileUploaded AuditEvent = "file_uploaded"
	EventFileRemoved  AuditEvent = "file_removed"

	// Verification events
	EventVerificationConfirmed AuditEvent = "verification_confirmed"
	EventVerificationFailed    AuditEvent = "verification_failed"

	// Submission events
	EventRegistrationSubmitted AuditEvent = "registration_submitted"
	EventSubmissionFailed      AuditEvent = "submission_failed"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance events - the registration record itself
	EventRegistrationSubmitted: CategoryCompliance,
	EventVerificationConfirmed: CategoryCompliance,

	// Security events
	EventVerificationFailed: CategorySecurity,

	// Operations events - routine draft activity
	EventDraftCreated:     CategoryOperations,
	EventDraftCleared:     CategoryOperations,
	EventStepReset:        CategoryOperations,
	EventFileUploaded:     CategoryOperations,
	EventFileRemoved:      CategoryOperations,
	EventSubmissionFailed: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be safe for concurrent
// use; Append failures are logged by callers, never propagated to the user
// path.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Nop discards every event. Used when auditing is not configured.
type Nop struct{}

func (Nop) Append(context.Context, Event) error { return nil }
