package models

// Caller is the authenticated identity passed explicitly into record operations.
// IP and UserAgent only feed the audit trail.
type Caller struct {
	UserID    string
	Role      UserRole
	IP        string
	UserAgent string
}

// CallerFromClaims builds a Caller from validated access-token claims.
func CallerFromClaims(claims *AccessClaims) Caller {
	if claims == nil {
		return Caller{}
	}
	return Caller{UserID: claims.UserID, Role: claims.Role}
}

// CanWrite reports whether the caller may register or update records.
func (c Caller) CanWrite() bool {
	return c.Role == RoleSuperAdmin || c.Role == RoleAdmin || c.Role == RoleStaff
}

// CanDelete reports whether the caller may delete records.
func (c Caller) CanDelete() bool {
	return c.Role == RoleSuperAdmin || c.Role == RoleAdmin
}

// IsAdmin is true for ADMIN and SUPERADMIN.
func (c Caller) IsAdmin() bool {
	return c.CanDelete()
}

// IsStudent is true when the caller may only see their own records.
func (c Caller) IsStudent() bool {
	return c.Role == RoleStudent
}

// Authenticated is false for the zero Caller.
func (c Caller) Authenticated() bool {
	return c.UserID != "" && c.Role.Valid()
}
