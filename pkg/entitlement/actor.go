package entitlement

import (
	"slices"

	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/plans"
)

// Role is the actor's resolved platform role. Role resolution (admin email
// lists, agency membership and so on) happens in the authentication layer;
// the metering core only consumes the result.
type Role string

const (
	// RoleAdmin bypasses every gate unconditionally.
	RoleAdmin     Role = "admin"
	RoleEmployer  Role = "employer"
	RoleAgency    Role = "agency"
	RoleJobSeeker Role = "job_seeker"
)

// Verification is the account verification state.
type Verification string

const (
	VerificationVerified   Verification = "verified"
	VerificationPending    Verification = "pending"
	VerificationUnverified Verification = "unverified"
)

// Actor is the authenticated principal performing a gated action.
type Actor struct {
	ID           uuid.UUID
	Role         Role
	Verification Verification

	// HasVerifiedDocument is set when a verified business document is on
	// file. It is authoritative over the Verification status string.
	HasVerifiedDocument bool
}

// IsVerified reports whether the actor counts as verified. An explicit
// verified document wins over the status string.
func (a Actor) IsVerified() bool {
	return a.HasVerifiedDocument || a.Verification == VerificationVerified
}

// IsAdmin reports whether the actor holds the top administrative role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// allowedRoles maps each resource type to the non-admin roles that may
// request it.
var allowedRoles = map[plans.ResourceType][]Role{
	plans.ResourceJobPosting:        {RoleEmployer, RoleAgency},
	plans.ResourceFeaturedJob:       {RoleEmployer, RoleAgency},
	plans.ResourceResumeView:        {RoleEmployer, RoleAgency},
	plans.ResourceDirectApplication: {RoleJobSeeker},
	plans.ResourceAIUsage:           {RoleEmployer, RoleAgency, RoleJobSeeker},
}

// roleAllowed reports whether the actor's role may request the resource.
func roleAllowed(role Role, res plans.ResourceType) bool {
	return slices.Contains(allowedRoles[res], role)
}
