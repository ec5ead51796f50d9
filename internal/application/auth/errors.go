package auth

import "handover-backend/internal/pkg/apperror"

var (
	ErrEmailPasswordRequired = apperror.Validation("Email and password are required")
	ErrInvalidCredentials    = apperror.Unauthorized("Invalid email or password")
	ErrNotAuthenticated      = apperror.Unauthorized("Not authenticated")
)
