package user

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"handover-backend/internal/application/emails"
	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"
	"handover-backend/internal/pkg/constants"
	"handover-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

// userSessionsPrefix must match middleware.UserSessionsPrefix.
const (
	userSessionsPrefix = "user_sessions:"
	sessionPrefix      = "session:"
)

// Service holds DB and Redis for user operations. Mailer may be nil.
type Service struct {
	DB     *gorm.DB
	Rdb    *redis.Client
	Mailer emails.Sender
}

// CreateUserInput is the registration form.
type CreateUserInput struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	City     string `json:"city"`
}

// CreateUser registers a member with role user and sends the welcome email.
// A mail failure is logged and does not fail the registration.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	if strings.TrimSpace(in.UserName) == "" {
		return nil, apperror.Validation("Username is required and must be a non-empty string")
	}
	if !validation.IsValidEmail(strings.TrimSpace(in.Email)) {
		return nil, apperror.Validation("Invalid email format")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, apperror.Validation("Invalid password format")
	}
	trimmed := strings.TrimSpace(in.Fullname)
	if trimmed == "" {
		return nil, apperror.Validation("Full name is required and must be a non-empty string")
	}
	if !validation.IsValidFullname(trimmed) {
		return nil, apperror.Validation("Full name contains invalid characters (only letters, spaces, hyphens, and apostrophes allowed)")
	}

	userName := strings.TrimSpace(in.UserName)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	db := s.DB.WithContext(ctx)

	if taken, err := exists(db, "email = ?", email); err != nil {
		return nil, apperror.Server("Failed to create user", err)
	} else if taken {
		return nil, apperror.Conflict("Email already registered")
	}
	if taken, err := exists(db, "user_name = ?", userName); err != nil {
		return nil, apperror.Server("Failed to create user", err)
	} else if taken {
		return nil, apperror.Conflict("Username already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, apperror.Server("Failed to create user", err)
	}

	u := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Fullname:     titleCaseAndNormalize(trimmed),
		City:         strings.TrimSpace(in.City),
		Role:         constants.RoleUser,
	}
	if err := db.Create(u).Error; err != nil {
		log.Error().Err(err).Msg("user: create failed")
		return nil, apperror.Server("Failed to create user", err)
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendWelcome(ctx, u.Email, firstName(u.Fullname)); err != nil {
			log.Warn().Err(err).Str("user_id", u.UserID.String()).Msg("user: welcome email failed")
		}
	}
	return u, nil
}

// UpdateUserInput holds the self-service profile fields; nil means unchanged.
type UpdateUserInput struct {
	UserName *string `json:"user_name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Fullname *string `json:"fullname"`
	City     *string `json:"city"`
}

// UpdateUser edits the caller's own profile.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, in UpdateUserInput) (*domain.User, error) {
	if userID == uuid.Nil {
		return nil, apperror.Unauthorized("Unauthorized")
	}
	upd := map[string]interface{}{}
	db := s.DB.WithContext(ctx)

	if in.Email != nil {
		e := strings.TrimSpace(strings.ToLower(*in.Email))
		if !validation.IsValidEmail(e) {
			return nil, apperror.Validation("Invalid email format")
		}
		if taken, err := exists(db, "email = ? AND user_id <> ?", e, userID); err != nil {
			return nil, apperror.Server("Failed to update user", err)
		} else if taken {
			return nil, apperror.Conflict("Email already registered")
		}
		upd["email"] = e
	}
	if in.UserName != nil {
		un := strings.TrimSpace(*in.UserName)
		if un == "" {
			return nil, apperror.Validation("Username must be a non-empty string")
		}
		if taken, err := exists(db, "user_name = ? AND user_id <> ?", un, userID); err != nil {
			return nil, apperror.Server("Failed to update user", err)
		} else if taken {
			return nil, apperror.Conflict("Username already registered")
		}
		upd["user_name"] = un
	}
	if in.Password != nil {
		if !validation.IsValidPassword(*in.Password) {
			return nil, apperror.Validation("Invalid password format")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcryptCost)
		if err != nil {
			return nil, apperror.Server("Failed to update user", err)
		}
		upd["password_hash"] = string(hash)
	}
	if in.Fullname != nil {
		fn := strings.TrimSpace(*in.Fullname)
		if fn == "" || !validation.IsValidFullname(fn) {
			return nil, apperror.Validation("Full name contains invalid characters")
		}
		upd["fullname"] = titleCaseAndNormalize(fn)
	}
	if in.City != nil {
		upd["city"] = strings.TrimSpace(*in.City)
	}
	if len(upd) == 0 {
		return nil, apperror.Validation("No valid update fields provided")
	}

	res := db.Model(&domain.User{}).Where("user_id = ?", userID).Updates(upd)
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("user: update failed")
		return nil, apperror.Server("Failed to update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperror.NotFound("User not found")
	}
	return s.ViewUser(ctx, userID)
}

// ViewUser returns a user by id.
func (s *Service) ViewUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	if userID == uuid.Nil {
		return nil, apperror.Validation("Missing user ID")
	}
	var u domain.User
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		log.Error().Err(err).Msg("user: lookup failed")
		return nil, apperror.Server("Failed to fetch user", err)
	}
	return &u, nil
}

// UpdateUserRole changes a member's role after the governance checks and
// revokes the target's sessions so the new role applies on next login.
func (s *Service) UpdateUserRole(ctx context.Context, actor domain.Actor, targetID uuid.UUID, role string) (*domain.User, error) {
	if err := ValidateRoleAssignment(ctx, s.DB, actor, targetID, role); err != nil {
		return nil, err
	}
	res := s.DB.WithContext(ctx).Model(&domain.User{}).Where("user_id = ?", targetID).Update("role", role)
	if res.Error != nil {
		log.Error().Err(res.Error).Msg("user: role update failed")
		return nil, apperror.Server("Failed to update role", res.Error)
	}
	s.destroySessions(ctx, targetID)
	log.Info().Str("actor_id", actor.UserID.String()).Str("target_id", targetID.String()).Str("role", role).Msg("user: role changed")
	return s.ViewUser(ctx, targetID)
}

// destroySessions removes every tracked session of userID from Redis.
func (s *Service) destroySessions(ctx context.Context, userID uuid.UUID) {
	if s.Rdb == nil {
		return
	}
	key := userSessionsPrefix + userID.String()
	ids, err := s.Rdb.SMembers(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Msg("user: session index read failed")
		return
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, key)
	if err := s.Rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("user: session revoke failed")
	}
}

func exists(db *gorm.DB, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := db.Model(&domain.User{}).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func firstName(fullname string) string {
	if parts := strings.Fields(fullname); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

func titleCaseAndNormalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
