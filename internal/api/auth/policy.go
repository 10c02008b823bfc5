package auth

import "github.com/openblog/openblog-api/internal/types"

// CanMutate is the ownership-or-admin authorization policy: a mutation on a
// resource is permitted to the resource's owner and to admins. Callers must
// surface a false result as types.ErrForbidden. Reads are never gated.
func CanMutate(identity types.Identity, resourceOwnerID int64) bool {
	return identity.IsAdmin() || identity.UserID == resourceOwnerID
}
