package constants

const (
	ModerateListings = "moderate_listings"
	ViewModeration   = "view_moderation"
	ViewAnyUser      = "view_any_user"
	AssignRole       = "assign_role"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ModerateListings: {RoleAdmin},
	ViewModeration:   {RoleAdmin},
	ViewAnyUser:      {RoleUser, RoleAdmin},
	AssignRole:       {RoleAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
