package policy

import (
	"github.com/google/uuid"

	"github.com/jobdeck/metering/pkg/entitlement"
)

// Job carries the ownership facts the gates need: who posted the job and who
// created its owning company.
type Job struct {
	ID               uuid.UUID
	PostedBy         uuid.UUID
	CompanyCreatedBy uuid.UUID
}

// Owner identifies the user owning a piece of contact data.
type Owner struct {
	ID uuid.UUID
}

// CanGenerateShortlink reports whether the actor may mint a shortlink for
// the job: admins, the job's author, and the creator of the job's owning
// company. A missing job always denies.
func CanGenerateShortlink(actor *entitlement.Actor, job *Job) bool {
	if actor == nil || job == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == job.PostedBy || actor.ID == job.CompanyCreatedBy
}

// CanViewContactDetails reports whether the viewer may see the owner's
// contact details. Ownerless data is public; otherwise the owner themselves,
// admins, and verified accounts qualify.
func CanViewContactDetails(viewer *entitlement.Actor, owner *Owner) bool {
	if owner == nil {
		return true
	}
	if viewer == nil {
		return false
	}
	if viewer.ID == owner.ID {
		return true
	}
	return viewer.IsAdmin() || viewer.IsVerified()
}

// CanRevealResume reports whether the actor may reveal a candidate's resume:
// admins and verified accounts only. A pending verification does not qualify.
func CanRevealResume(actor *entitlement.Actor) bool {
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.IsVerified()
}
