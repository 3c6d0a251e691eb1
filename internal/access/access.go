// Package access carries the authenticated caller into services and holds the
// role and ownership checks they share.
package access

import (
	"github.com/angelmondragon/adspace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/adspace-backend/pkg/errors"
)

// Actor is the caller resolved from the bearer token.
type Actor struct {
	UserID uint64
	Role   enums.Role
}

func (a Actor) IsAdmin() bool    { return a.Role == enums.RoleAdmin }
func (a Actor) IsProvider() bool { return a.Role == enums.RoleProvider }
func (a Actor) IsClient() bool   { return a.Role == enums.RoleClient }

// Authenticated fails with Unauthorized when the actor carries no identity.
func (a Actor) Authenticated() error {
	if a.UserID == 0 || !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// RequireRole fails with Forbidden unless the actor holds one of roles.
func (a Actor) RequireRole(roles ...enums.Role) error {
	if err := a.Authenticated(); err != nil {
		return err
	}
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted for this action")
}

// Owns reports whether the actor is the owner of a row.
func (a Actor) Owns(ownerUserID uint64) bool {
	return a.UserID != 0 && a.UserID == ownerUserID
}

// RequireOwnerOrAdmin lets admins through and otherwise demands ownership.
func (a Actor) RequireOwnerOrAdmin(ownerUserID uint64, what string) error {
	if err := a.Authenticated(); err != nil {
		return err
	}
	if a.IsAdmin() || a.Owns(ownerUserID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, what+" does not belong to the caller")
}
