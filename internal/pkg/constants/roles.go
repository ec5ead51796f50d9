package constants

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRoles is the set of allowed values for the users.role column.
var ValidRoles = []string{RoleUser, RoleAdmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether role carries administrative privileges.
func IsAdmin(role string) bool {
	return role == RoleAdmin
}
