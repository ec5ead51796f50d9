package user

import (
	usersvc "handover-backend/internal/application/user"
	"handover-backend/internal/domain"
	"handover-backend/internal/middleware"
	"handover-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers holds the user service and session config for create-user (session + cookie).
type Handlers struct {
	Service *usersvc.Service
	Config  middleware.SessionConfig
}

// CreateUserRequest is the registration body.
type CreateUserRequest struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Fullname string `json:"fullname"`
	City     string `json:"city"`
}

// CreateUser POST /api/v1/users/create-user registers the member and logs them in.
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	if req.UserName == "" || req.Email == "" || req.Password == "" || req.Fullname == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.CreateUser(c.UserContext(), usersvc.CreateUserInput{
		UserName: req.UserName,
		Email:    req.Email,
		Password: req.Password,
		Fullname: req.Fullname,
		City:     req.City,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	err = middleware.StartSession(c, h.Service.Rdb, h.Config, middleware.SessionUser{
		UserID:   u.UserID.String(),
		Fullname: u.Fullname,
		UserName: u.UserName,
		Email:    u.Email,
		Role:     u.Role,
	})
	if err != nil {
		log.Warn().Err(err).Str("user_id", u.UserID.String()).Msg("users: session index write failed")
	}

	return response.SuccessCreated(c, "User created successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// UpdateUser PUT /api/v1/users/update-user updates the session user's own profile.
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	var req usersvc.UpdateUserInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing update fields", fiber.StatusBadRequest, nil)
	}

	u, err := h.Service.UpdateUser(c.UserContext(), actor.UserID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

// ViewMe GET /api/v1/users/view-user returns the session user's full profile.
func (h *Handlers) ViewMe(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	u, err := h.Service.ViewUser(c.UserContext(), actor.UserID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
}

// ViewUser GET /api/v1/users/view-user/:user_id returns the public profile of
// any member; administrators (VIEW_ANY_USER) get the full record.
func (h *Handlers) ViewUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("user_id"))
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.ViewUser(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	if actor, ok := middleware.ActorFrom(c); ok && (actor.IsAdmin() || actor.UserID == u.UserID) {
		return response.Success(c, "User found", fiber.Map{"user": safeUser(u)}, nil)
	}
	return response.Success(c, "User found", fiber.Map{"user": u.Public()}, nil)
}

// UpdateRoleRequest body: user_id, role.
type UpdateRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/update-role requires ASSIGN_ROLE (middleware applied on route).
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	if req.UserID == "" || req.Role == "" {
		return response.Error(c, "user_id and role are required", fiber.StatusBadRequest, nil)
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		return response.Error(c, "Invalid user ID format (must be a valid UUID)", fiber.StatusBadRequest, nil)
	}

	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	u, err := h.Service.UpdateUserRole(c.UserContext(), actor, targetID, req.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User role updated successfully", fiber.Map{"user": safeUser(u)}, nil)
}

func safeUser(u *domain.User) fiber.Map {
	return fiber.Map{
		"user_id":   u.UserID.String(),
		"fullname":  u.Fullname,
		"user_name": u.UserName,
		"email":     u.Email,
		"city":      u.City,
		"role":      u.Role,
		"createdAt": u.CreatedAt,
		"updatedAt": u.UpdatedAt,
	}
}
