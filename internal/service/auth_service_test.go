package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quillhub/moderation-api/internal/models"
	appErrors "github.com/quillhub/moderation-api/pkg/errors"
)

type stubAuthStore struct {
	user             *models.User
	refreshTokens    map[string]*models.RefreshToken
	createRefreshErr error
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
	revokedAll       bool
}

func (s *stubAuthStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubAuthStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *stubAuthStore) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	s.lastLoginUpdated = true
	return nil
}

func (s *stubAuthStore) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.PasswordHash = passwordHash
	}
	return nil
}

func (s *stubAuthStore) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	s.revokedAll = true
	return nil
}

func (s *stubAuthStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if s.createRefreshErr != nil {
		return s.createRefreshErr
	}
	if s.refreshTokens == nil {
		s.refreshTokens = make(map[string]*models.RefreshToken)
	}
	s.refreshTokens[token.Token] = token
	return nil
}

func (s *stubAuthStore) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := s.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (s *stubAuthStore) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (s *stubAuthStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func authConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "moderation-api",
	}
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	store := &stubAuthStore{user: &models.User{
		ID: "u1", Email: "mod@example.com", PasswordHash: hashed(t, "password"),
		Active: true, Role: models.RoleModerator,
	}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "mod@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, models.RoleModerator, res.User.Role)
	assert.True(t, store.lastLoginUpdated)
	assert.NotEmpty(t, store.refreshTokens)
	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, store.auditLogs[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	store := &stubAuthStore{user: &models.User{
		ID: "u1", Email: "mod@example.com", PasswordHash: hashed(t, "password"), Active: true,
	}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mod@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	store := &stubAuthStore{user: &models.User{
		ID: "u1", Email: "mod@example.com", PasswordHash: hashed(t, "password"), Active: false,
	}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mod@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginBlocked(t *testing.T) {
	store := &stubAuthStore{user: &models.User{
		ID: "u1", Email: "mod@example.com", PasswordHash: hashed(t, "password"),
		Active: true, Blocked: true,
	}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "mod@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAuthorBlocked.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.refreshTokens)
}

func TestAuthServiceRefreshRotatesToken(t *testing.T) {
	store := &stubAuthStore{
		user: &models.User{ID: "u1", Email: "mod@example.com", Active: true, Role: models.RoleModerator},
		refreshTokens: map[string]*models.RefreshToken{
			"old-token": {ID: "rt1", UserID: "u1", Token: "old-token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "old-token", res.RefreshToken)
	assert.True(t, store.refreshTokens["old-token"].Revoked)
}

func TestAuthServiceRefreshRejectsRevokedToken(t *testing.T) {
	store := &stubAuthStore{
		user: &models.User{ID: "u1", Email: "mod@example.com", Active: true},
		refreshTokens: map[string]*models.RefreshToken{
			"burned": {ID: "rt1", UserID: "u1", Token: "burned", Revoked: true, ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "burned"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutForeignToken(t *testing.T) {
	store := &stubAuthStore{
		refreshTokens: map[string]*models.RefreshToken{
			"token": {ID: "rt1", UserID: "someone-else", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	err := svc.Logout(context.Background(), "token", "u1", models.LoginRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, store.refreshTokens["token"].Revoked)
}

func TestAuthServiceChangePasswordRevokesSessions(t *testing.T) {
	oldHash := hashed(t, "old")
	store := &stubAuthStore{user: &models.User{ID: "u1", PasswordHash: oldHash, Active: true}}
	svc := NewAuthService(store, validator.New(), zap.NewNop(), authConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, store.user.PasswordHash)
	assert.True(t, store.revokedAll)
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(&stubAuthStore{}, validator.New(), zap.NewNop(), authConfig())
	user := &models.User{ID: "u1", Email: "mod@example.com", Role: models.RoleAdmin}
	token, _, err := svc.signAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
