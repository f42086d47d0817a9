package auth

// RequireAnyRole passes p through unchanged when it holds at least one of the
// required roles, otherwise it fails with ErrInsufficientRole.
// It only looks at the roles embedded in the already-validated principal.
func RequireAnyRole(p Principal, required ...Role) (Principal, error) {
	for _, r := range required {
		if p.HasRole(r) {
			return p, nil
		}
	}
	return Principal{}, ErrInsufficientRole
}
