package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/service"
)

type identityRepoMock struct {
	principal *models.Principal
	tokens    map[string]*models.RefreshToken
}

func (m *identityRepoMock) ResolveByEmail(ctx context.Context, email string) (*models.Principal, error) {
	return m.principal, nil
}

func (m *identityRepoMock) FindByID(ctx context.Context, id string, role models.Role) (*models.Principal, error) {
	return m.principal, nil
}

func (m *identityRepoMock) UpdatePassword(ctx context.Context, id string, role models.Role, passwordHash string) error {
	return nil
}

func (m *identityRepoMock) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.tokens == nil {
		m.tokens = make(map[string]*models.RefreshToken)
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *identityRepoMock) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.tokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *identityRepoMock) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func (m *identityRepoMock) RevokePrincipalRefreshTokens(ctx context.Context, principalID string) error {
	return nil
}

func newAuthTestHandler(repo *identityRepoMock) *AuthHandler {
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "registrar-api",
	})
	return NewAuthHandler(svc)
}

func postJSON(t *testing.T, path, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &identityRepoMock{principal: &models.Principal{
		ID: "p1", Role: models.RoleStudent, Email: "a@u.edu",
		FirstName: "Ada", LastName: "Lovelace", PasswordHash: string(hash),
	}}
	h := newAuthTestHandler(repo)

	w, c := postJSON(t, "/auth/login", `{"email":"a@u.edu","password":"password"}`)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "Ada Lovelace", envelope.Data.Principal.FullName)
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	repo := &identityRepoMock{principal: &models.Principal{ID: "p1", Role: models.RoleStudent, Email: "a@u.edu", PasswordHash: string(hash)}}
	h := newAuthTestHandler(repo)

	w, c := postJSON(t, "/auth/login", `{"email":"a@u.edu","password":"wrong"}`)
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_CREDENTIALS", envelope.Error.Code)
}

func TestAuthHandlerLoginInvalidPayload(t *testing.T) {
	h := newAuthTestHandler(&identityRepoMock{})

	w, c := postJSON(t, "/auth/login", `{"email":`)
	h.Login(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newAuthTestHandler(&identityRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/me", nil)
	c.Request = req
	c.Set("currentPrincipal", &models.JWTClaims{PrincipalID: "p1", Role: models.RoleInstructor, Email: "a@u.edu", FullName: "Ada Lovelace"})

	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.PrincipalInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "p1", envelope.Data.ID)
	assert.Equal(t, models.RoleInstructor, envelope.Data.Role)
}
