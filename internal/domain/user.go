package domain

import "time"

// UserRole enumerates supported roles.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleNGO     UserRole = "ngo"
	UserRoleGovt    UserRole = "govt"
	UserRoleAuditor UserRole = "auditor"
	UserRolePublic  UserRole = "public"
)

// KnownRoles lists every role accepted at registration.
var KnownRoles = []UserRole{UserRoleAdmin, UserRoleNGO, UserRoleGovt, UserRoleAuditor, UserRolePublic}

// ParseRole reports whether s names a known role.
func ParseRole(s string) (UserRole, bool) {
	for _, r := range KnownRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// User represents a registered account. Username is the unique key.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}
