package service

import (
	"account-service/internal/models"

	"github.com/google/uuid"
)

// Authorization predicates. Pure functions over the actor's role and,
// where relevant, the owning account of the resource.

// CanListAccounts gates the admin account listing.
func CanListAccounts(actor models.Role) bool {
	return actor == models.RoleAdmin
}

// CanUnderwrite gates underwriter-scoped actions.
func CanUnderwrite(actor models.Role) bool {
	return actor == models.RoleUnderwriter || actor == models.RoleAdmin
}

// CanModifyAccount allows owners and admins to touch an owned resource.
func CanModifyAccount(actor models.Role, actorID, ownerID uuid.UUID) bool {
	if actor == models.RoleAdmin {
		return true
	}
	return actorID == ownerID
}
