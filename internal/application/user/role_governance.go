package user

import (
	"context"
	"errors"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"
	"handover-backend/internal/pkg/constants"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrOnlyAdminsCanAssignRoles = apperror.Forbidden("Only administrators can assign roles")
	ErrInvalidRole              = apperror.Validation("Invalid role")
	ErrTargetUserNotFound       = apperror.NotFound("Target user not found")
	ErrCannotModifyOwnRole      = apperror.Forbidden("Users cannot modify their own role")
	ErrLastAdmin                = apperror.Validation("At least one administrator must remain")
)

// ValidateRoleAssignment enforces who may give which role to whom.
func ValidateRoleAssignment(ctx context.Context, db *gorm.DB, actor domain.Actor, targetID uuid.UUID, role string) error {
	if !actor.IsAdmin() {
		return ErrOnlyAdminsCanAssignRoles
	}
	if !constants.IsValidRole(role) {
		return ErrInvalidRole
	}
	if actor.UserID == targetID {
		return ErrCannotModifyOwnRole
	}
	var target domain.User
	if err := db.WithContext(ctx).Where("user_id = ?", targetID).First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTargetUserNotFound
		}
		return apperror.Server("Failed to fetch user", err)
	}
	if constants.IsAdmin(target.Role) && !constants.IsAdmin(role) {
		var admins int64
		if err := db.WithContext(ctx).Model(&domain.User{}).Where("role = ?", constants.RoleAdmin).Count(&admins).Error; err != nil {
			return apperror.Server("Failed to count administrators", err)
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	return nil
}
