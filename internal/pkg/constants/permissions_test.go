package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	assert.True(t, AllowedRole(ModerateListings, RoleAdmin))
	assert.False(t, AllowedRole(ModerateListings, RoleUser))
	assert.True(t, AllowedRole(ViewAnyUser, RoleUser))
	assert.True(t, AllowedRole(AssignRole, RoleAdmin))
	assert.False(t, AllowedRole(AssignRole, RoleUser))
	assert.False(t, AllowedRole("unknown_permission", RoleAdmin))
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole(RoleUser))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("superadmin"))
}
