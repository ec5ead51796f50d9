package user

import (
	"context"
	"testing"

	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"
	"handover-backend/internal/pkg/constants"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type welcomeRecorder struct {
	welcomed []string
}

func (w *welcomeRecorder) SendWelcome(_ context.Context, toEmail, _ string) error {
	w.welcomed = append(w.welcomed, toEmail)
	return nil
}

func (w *welcomeRecorder) SendDonationNotice(context.Context, string, string, string) error {
	return nil
}

func setupUserService(t *testing.T) (*Service, *miniredis.Miniredis, *welcomeRecorder) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mail := &welcomeRecorder{}
	return &Service{DB: db, Rdb: rdb, Mailer: mail}, mr, mail
}

func register(t *testing.T, svc *Service, name string) *domain.User {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		UserName: name,
		Email:    name + "@example.com",
		Password: "Secret123!",
		Fullname: "  " + name + "   tester ",
		City:     "Berlin",
	})
	require.NoError(t, err)
	return u
}

func TestCreateUser_NormalizesAndWelcomes(t *testing.T) {
	svc, _, mail := setupUserService(t)
	u := register(t, svc, "jane")

	assert.Equal(t, "Jane Tester", u.Fullname)
	assert.Equal(t, constants.RoleUser, u.Role)
	assert.NotEqual(t, "Secret123!", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Secret123!")))
	assert.Equal(t, []string{"jane@example.com"}, mail.welcomed)
}

func TestCreateUser_Validation(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()
	cases := []CreateUserInput{
		{UserName: "", Email: "a@b.co", Password: "Secret123!", Fullname: "A"},
		{UserName: "a", Email: "not-an-email", Password: "Secret123!", Fullname: "A"},
		{UserName: "a", Email: "a@b.co", Password: "short", Fullname: "A"},
		{UserName: "a", Email: "a@b.co", Password: "Secret123!", Fullname: "R2-D2"},
	}
	for _, in := range cases {
		_, err := svc.CreateUser(ctx, in)
		assert.True(t, apperror.Is(err, apperror.KindValidation), "%+v", in)
	}
}

func TestCreateUser_DuplicatesConflict(t *testing.T) {
	svc, _, _ := setupUserService(t)
	register(t, svc, "jane")

	_, err := svc.CreateUser(context.Background(), CreateUserInput{
		UserName: "other", Email: "JANE@example.com", Password: "Secret123!", Fullname: "Other",
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		UserName: "jane", Email: "new@example.com", Password: "Secret123!", Fullname: "Other",
	})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestUpdateUser(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()
	jane := register(t, svc, "jane")
	register(t, svc, "john")

	city := "Munich"
	u, err := svc.UpdateUser(ctx, jane.UserID, UpdateUserInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Munich", u.City)

	taken := "john@example.com"
	_, err = svc.UpdateUser(ctx, jane.UserID, UpdateUserInput{Email: &taken})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	_, err = svc.UpdateUser(ctx, jane.UserID, UpdateUserInput{})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = svc.UpdateUser(ctx, uuid.New(), UpdateUserInput{City: &city})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestViewUser(t *testing.T) {
	svc, _, _ := setupUserService(t)
	jane := register(t, svc, "jane")

	u, err := svc.ViewUser(context.Background(), jane.UserID)
	require.NoError(t, err)
	assert.Equal(t, "jane", u.UserName)

	_, err = svc.ViewUser(context.Background(), uuid.New())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdateUserRole_RevokesSessions(t *testing.T) {
	svc, mr, _ := setupUserService(t)
	ctx := context.Background()
	root := register(t, svc, "root")
	require.NoError(t, svc.DB.Model(&domain.User{}).Where("user_id = ?", root.UserID).Update("role", constants.RoleAdmin).Error)
	jane := register(t, svc, "jane")

	require.NoError(t, mr.Set(sessionPrefix+"s1", `{"user":{}}`))
	_, err := mr.SAdd(userSessionsPrefix+jane.UserID.String(), "s1")
	require.NoError(t, err)

	admin := domain.Actor{UserID: root.UserID, Role: constants.RoleAdmin}
	u, err := svc.UpdateUserRole(ctx, admin, jane.UserID, constants.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, constants.RoleAdmin, u.Role)
	assert.False(t, mr.Exists(sessionPrefix+"s1"))
	assert.False(t, mr.Exists(userSessionsPrefix+jane.UserID.String()))
}

func TestValidateRoleAssignment(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()
	root := register(t, svc, "root")
	require.NoError(t, svc.DB.Model(&domain.User{}).Where("user_id = ?", root.UserID).Update("role", constants.RoleAdmin).Error)
	jane := register(t, svc, "jane")
	admin := domain.Actor{UserID: root.UserID, Role: constants.RoleAdmin}

	err := ValidateRoleAssignment(ctx, svc.DB, domain.Actor{UserID: jane.UserID, Role: constants.RoleUser}, root.UserID, constants.RoleUser)
	assert.ErrorIs(t, err, ErrOnlyAdminsCanAssignRoles)

	assert.ErrorIs(t, ValidateRoleAssignment(ctx, svc.DB, admin, jane.UserID, "superuser"), ErrInvalidRole)
	assert.ErrorIs(t, ValidateRoleAssignment(ctx, svc.DB, admin, root.UserID, constants.RoleUser), ErrCannotModifyOwnRole)
	assert.ErrorIs(t, ValidateRoleAssignment(ctx, svc.DB, admin, uuid.New(), constants.RoleUser), ErrTargetUserNotFound)
	assert.NoError(t, ValidateRoleAssignment(ctx, svc.DB, admin, jane.UserID, constants.RoleAdmin))
}

func TestValidateRoleAssignment_LastAdmin(t *testing.T) {
	svc, _, _ := setupUserService(t)
	ctx := context.Background()
	root := register(t, svc, "root")
	require.NoError(t, svc.DB.Model(&domain.User{}).Where("user_id = ?", root.UserID).Update("role", constants.RoleAdmin).Error)

	// A second actor claiming admin in the session, with only one admin row left.
	ghost := domain.Actor{UserID: uuid.New(), Role: constants.RoleAdmin}
	assert.ErrorIs(t, ValidateRoleAssignment(ctx, svc.DB, ghost, root.UserID, constants.RoleUser), ErrLastAdmin)
}
