// Package access decides who may read or change leads, activities and users.
// Every decision is a pure function of the actor and a reference to the
// target resource; callers load the resource first and pass nil when it does
// not exist, so "not found" always wins over "forbidden".
package access

import (
	"crm_backend/platform/apperr"
	"crm_backend/platform/httpkit"

	"github.com/google/uuid"
)

// Role is a CRM user role.
type Role string

const (
	RoleAdmin          Role = "Admin"
	RoleManager        Role = "Manager"
	RoleSalesExecutive Role = "Sales Executive"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleManager, RoleSalesExecutive}

// ParseRole returns the Role named by s.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// IsPrivileged reports whether r has unrestricted access to leads and activities.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Operation is a lead operation subject to ownership checks.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
)

// LeadRef carries the ownership fields of a lead.
type LeadRef struct {
	ID           uuid.UUID
	AssignedToID *uuid.UUID
}

// ActivityRef carries the ownership fields of an activity.
type ActivityRef struct {
	ID       uuid.UUID
	AuthorID uuid.UUID
	Lead     LeadRef
}

// UserRef carries the fields of a user account that policies look at.
type UserRef struct {
	ID   uuid.UUID
	Role Role
}

// DecisionKind tags the outcome of a policy check.
type DecisionKind int

const (
	Allow DecisionKind = iota
	DenyNotFound
	DenyForbidden
	DenyBadRequest
)

// Decision is the result of a policy check.
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool {
	return d.Kind == Allow
}

// Err converts a denial into the matching apperr error. It returns nil when allowed.
func (d Decision) Err() error {
	switch d.Kind {
	case Allow:
		return nil
	case DenyNotFound:
		return apperr.NotFound(d.Reason)
	case DenyBadRequest:
		return apperr.BadRequest(d.Reason)
	default:
		return apperr.Forbidden(d.Reason)
	}
}

const (
	msgAccessDenied    = "Access denied"
	msgLeadNotFound    = "Lead not found"
	msgActivityMissing = "Activity not found"
	msgUserNotFound    = "User not found"
)

func allow() Decision { return Decision{Kind: Allow} }

func notFound(reason string) Decision { return Decision{Kind: DenyNotFound, Reason: reason} }

func forbidden(reason string) Decision { return Decision{Kind: DenyForbidden, Reason: reason} }

// LeadAccess decides read and update access to a lead. A Sales Executive is
// limited to leads assigned to them.
func LeadAccess(actor Actor, lead *LeadRef, op Operation) Decision {
	if lead == nil {
		return notFound(msgLeadNotFound)
	}
	if actor.Role.IsPrivileged() {
		return allow()
	}
	if actor.Role == RoleSalesExecutive && lead.AssignedToID != nil && *lead.AssignedToID == actor.ID {
		return allow()
	}
	return forbidden(msgAccessDenied)
}

// LeadDelete decides whether a lead may be deleted. Ownership does not matter.
func LeadDelete(actor Actor, lead *LeadRef) Decision {
	if lead == nil {
		return notFound(msgLeadNotFound)
	}
	if actor.Role.IsPrivileged() {
		return allow()
	}
	return forbidden(msgAccessDenied)
}

// ActivityAccess decides whether actor may list or log activities on a lead.
// Activities inherit the permission of their parent lead.
func ActivityAccess(actor Actor, parentLead *LeadRef) Decision {
	return LeadAccess(actor, parentLead, OpRead)
}

// ActivityModify decides update and delete access to an activity: its author,
// or an Admin or Manager.
func ActivityModify(actor Actor, activity *ActivityRef) Decision {
	if activity == nil {
		return notFound(msgActivityMissing)
	}
	if actor.Role.IsPrivileged() || activity.AuthorID == actor.ID {
		return allow()
	}
	return forbidden(msgAccessDenied)
}

// UserCreate decides whether actor may create an account with targetRole.
func UserCreate(actor Actor, targetRole Role) Decision {
	if !actor.Role.IsPrivileged() {
		return forbidden(msgAccessDenied)
	}
	if actor.Role == RoleManager && targetRole == RoleAdmin {
		return forbidden("Managers cannot create Admin users")
	}
	return allow()
}

// UserUpdate decides whether actor may update target. newRole is nil when the
// update leaves the role unchanged.
func UserUpdate(actor Actor, target *UserRef, newRole *Role) Decision {
	if target == nil {
		return notFound(msgUserNotFound)
	}
	if !actor.Role.IsPrivileged() {
		return forbidden(msgAccessDenied)
	}
	if newRole != nil && *newRole == RoleAdmin && actor.Role == RoleManager {
		return forbidden("Managers cannot create or update Admin users")
	}
	if target.Role == RoleAdmin && actor.Role != RoleAdmin {
		return forbidden("Cannot modify Admin user")
	}
	return allow()
}

// UserDelete decides whether actor may delete target.
func UserDelete(actor Actor, target *UserRef) Decision {
	if target == nil {
		return notFound(msgUserNotFound)
	}
	if !actor.Role.IsPrivileged() {
		return forbidden(msgAccessDenied)
	}
	if target.ID == actor.ID {
		return Decision{Kind: DenyBadRequest, Reason: "Cannot delete your own account"}
	}
	if target.Role == RoleAdmin && actor.Role != RoleAdmin {
		return forbidden("Cannot delete Admin user")
	}
	return allow()
}

// LeadListScope returns the assignee filter forced onto lead queries for actor.
// Nil means the actor sees every lead.
func LeadListScope(actor Actor) *uuid.UUID {
	if actor.Role.IsPrivileged() {
		return nil
	}
	id := actor.ID
	return &id
}

// CanManageTeam reports whether actor may manage user accounts and view team
// performance.
func CanManageTeam(actor Actor) bool {
	return actor.Role.IsPrivileged()
}

// CanManageIntegrations reports whether actor may configure webhooks.
func CanManageIntegrations(actor Actor) bool {
	return actor.Role.IsPrivileged()
}

// ActorFromIdentity builds an Actor from the request identity. Unknown roles
// get no privileges.
func ActorFromIdentity(id httpkit.Identity) Actor {
	role, _ := ParseRole(id.Role())
	return Actor{ID: id.UserID(), Role: role}
}
