package entitlement

// Denial reasons are stable strings surfaced to end users; route handlers
// match on them, so they never change between releases.
const (
	ReasonInsufficientRole    = "insufficient role"
	ReasonLimitExceeded       = "limit exceeded"
	ReasonNotVerified         = "not verified"
	ReasonPlacementRestricted = "placement restricted"
)

// Decision is the verdict of a policy evaluation. Denial is normal control
// flow, not an error: Reason is set on denials and empty on allows.
// Limited marks an allow that operates under restriction (an unverified
// account that should be nudged to complete verification).
type Decision struct {
	Allowed bool   `json:"allowed"`
	Limited bool   `json:"limited"`
	Reason  string `json:"reason,omitempty"`
}

// Allow is the unconditional positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// AllowLimited is a positive decision flagged as restricted.
func AllowLimited() Decision {
	return Decision{Allowed: true, Limited: true}
}

// Deny is a negative decision with a stable reason string.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}
