package shop

// Authorize decides whether the authenticated claims may act on a resource
// owned by ownerID: admins may act on anything, everyone else only on what
// they own. Pure function, evaluated strictly after authentication; the
// owner id comes from the route, never from a fresh store lookup.
func Authorize(claims AuthClaims, ownerID string) error {
	if claims == nil {
		return ErrUnableToFindSession
	}

	if claims.HasRole(RoleAdmin) {
		return nil
	}

	if claims.UserID() != "" && claims.UserID() == ownerID {
		return nil
	}

	return ErrNotResourceOwner
}
