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

	"github.com/campushq/registrar-api/internal/models"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
)

type mockIdentityRepo struct {
	principal         *models.Principal
	resolveErr        error
	findByIDErr       error
	updatePasswordErr error
	updatedHash       string
	refreshTokens     map[string]*models.RefreshToken
	revokedAll        bool
}

func (m *mockIdentityRepo) ResolveByEmail(ctx context.Context, email string) (*models.Principal, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.principal, nil
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string, role models.Role) (*models.Principal, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	return m.principal, nil
}

func (m *mockIdentityRepo) UpdatePassword(ctx context.Context, id string, role models.Role, passwordHash string) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	m.updatedHash = passwordHash
	if m.principal != nil && m.principal.ID == id {
		m.principal.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockIdentityRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockIdentityRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockIdentityRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockIdentityRepo) RevokePrincipalRefreshTokens(ctx context.Context, principalID string) error {
	m.revokedAll = true
	for _, token := range m.refreshTokens {
		if token.PrincipalID == principalID {
			token.Revoked = true
		}
	}
	return nil
}

func newTestAuthService(repo *mockIdentityRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "registrar-api",
	})
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockIdentityRepo{principal: &models.Principal{
		ID: "p1", Role: models.RoleStudent, Email: "a@u.edu",
		FirstName: "Ada", LastName: "Lovelace", PasswordHash: string(hash),
	}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@u.edu", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "Ada Lovelace", res.Principal.FullName)
	assert.Equal(t, models.RoleStudent, res.Principal.Role)
	assert.NotEmpty(t, repo.refreshTokens)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockIdentityRepo{principal: &models.Principal{ID: "p1", Role: models.RoleStudent, Email: "a@u.edu", PasswordHash: string(hash)}}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@u.edu", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.revokedAll)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	repo := &mockIdentityRepo{resolveErr: sql.ErrNoRows}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@u.edu", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginUpgradesLegacyDigest(t *testing.T) {
	repo := &mockIdentityRepo{principal: &models.Principal{
		ID: "p1", Role: models.RoleInstructor, Email: "a@u.edu",
		PasswordHash: sha256Hex("password"),
	}}
	svc := newTestAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@u.edu", Password: "password"})
	require.NoError(t, err)
	require.NotEmpty(t, repo.updatedHash)
	assert.False(t, IsLegacyDigest(repo.updatedHash))
	assert.True(t, VerifyPassword(repo.updatedHash, "password"))
}

func TestAuthServiceLoginRevokesPriorSessions(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &mockIdentityRepo{
		principal: &models.Principal{ID: "p1", Role: models.RoleStudent, Email: "a@u.edu", PasswordHash: string(hash)},
		refreshTokens: map[string]*models.RefreshToken{
			"old": {ID: "rt-old", PrincipalID: "p1", Token: "old", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@u.edu", Password: "password"})
	require.NoError(t, err)
	assert.True(t, repo.revokedAll)
	assert.True(t, repo.refreshTokens["old"].Revoked)
	assert.False(t, repo.refreshTokens[res.RefreshToken].Revoked)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	repo := &mockIdentityRepo{
		principal: &models.Principal{ID: "p1", Role: models.RoleStudent, Email: "a@u.edu"},
		refreshTokens: map[string]*models.RefreshToken{
			"token": {ID: "rt1", PrincipalID: "p1", Role: models.RoleStudent, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newTestAuthService(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	repo := &mockIdentityRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"token": {ID: "rt1", PrincipalID: "p1", Role: models.RoleStudent, Token: "token", ExpiresAt: time.Now().Add(-time.Minute)},
		},
	}
	svc := newTestAuthService(repo)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &mockIdentityRepo{
		refreshTokens: map[string]*models.RefreshToken{
			"token": {ID: "rt1", PrincipalID: "p1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
		},
	}
	svc := newTestAuthService(repo)

	err := svc.Logout(context.Background(), "token", "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceChangePassword(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	repo := &mockIdentityRepo{principal: &models.Principal{ID: "p1", Role: models.RoleAdmin, PasswordHash: string(oldHash)}}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), "p1", models.RoleAdmin, models.ChangePasswordRequest{OldPassword: "old-pass", NewPassword: "new-pass"})
	require.NoError(t, err)
	assert.True(t, VerifyPassword(repo.principal.PasswordHash, "new-pass"))
	assert.True(t, repo.revokedAll)
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	repo := &mockIdentityRepo{principal: &models.Principal{ID: "p1", Role: models.RoleAdmin, PasswordHash: string(oldHash)}}
	svc := newTestAuthService(repo)

	err := svc.ChangePassword(context.Background(), "p1", models.RoleAdmin, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(&mockIdentityRepo{})
	principal := &models.Principal{ID: "p1", Role: models.RoleInstructor, Email: "a@u.edu", FirstName: "Ada", LastName: "Lovelace"}

	token, _, err := svc.generateAccessToken(principal)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.PrincipalID)
	assert.Equal(t, models.RoleInstructor, claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc := newTestAuthService(&mockIdentityRepo{})
	other := NewAuthService(&mockIdentityRepo{}, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "other-secret",
		AccessTokenExpiry: time.Hour,
	})

	token, _, err := other.generateAccessToken(&models.Principal{ID: "p1", Role: models.RoleStudent})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
