package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Role is the caller's role as resolved by the identity provider.
type Role string

const (
	RoleHomeowner  Role = "homeowner"
	RoleContractor Role = "contractor"
	RoleAdmin      Role = "admin"
	// RoleSystem is used by background jobs such as auto-assignment on quote requests.
	RoleSystem Role = "system"
)

// Actor is an already-authenticated caller. Credentials are never seen here.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// SystemActor is the actor used for work not triggered by a person.
func SystemActor() Actor {
	return Actor{Role: RoleSystem}
}

// IsAdmin reports whether the actor may act on any lead.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// IsContractor reports whether the actor acts on behalf of a contractor company.
func (a Actor) IsContractor() bool {
	return a.Role == RoleContractor
}

// NormalizedEmail is the lower-cased email used to resolve the contractor record.
func (a Actor) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(a.Email))
}

// ActorFromRoles picks the most privileged known role from a token's role list.
func ActorFromRoles(userID uuid.UUID, email string, roles []string) Actor {
	actor := Actor{UserID: userID, Email: email, Role: RoleHomeowner}
	for _, r := range roles {
		switch Role(strings.ToLower(r)) {
		case RoleAdmin:
			actor.Role = RoleAdmin
			return actor
		case RoleContractor:
			actor.Role = RoleContractor
		}
	}
	return actor
}
