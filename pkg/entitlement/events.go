package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// EventType discriminates ledger events emitted by the consumption service.
type EventType string

const (
	EventCreditConsumed EventType = "credit_consumed"
	EventLimitExceeded  EventType = "limit_exceeded"
)

// Event is broadcast after consumption attempts so that notifiers and
// mailers can react without being wired into the business logic.
type Event struct {
	Type      EventType
	UserID    uuid.UUID
	Resource  plans.ResourceType
	Amount    int64
	Source    Source // set on EventCreditConsumed
	Remaining int64  // remaining allowance or balance after the charge
	At        time.Time
}
