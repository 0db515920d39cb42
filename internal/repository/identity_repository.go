package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/registrar-api/internal/models"
)

// IdentityRepository resolves principals across the per-role identity tables
// and manages their credentials and refresh token sessions.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new instance of IdentityRepository.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// roleTables lists the identity tables in lookup priority order. An email
// present in more than one table only ever resolves to the highest priority
// role: admin over instructor over student.
var roleTables = []struct {
	role  models.Role
	table string
}{
	{models.RoleAdmin, "admins"},
	{models.RoleInstructor, "instructors"},
	{models.RoleStudent, "students"},
}

func selectColumns(role models.Role) string {
	switch role {
	case models.RoleStudent:
		return "id, first_name, last_name, email, password_hash, major, advisor_id, NULL AS department_id"
	case models.RoleInstructor:
		return "id, first_name, last_name, email, password_hash, NULL AS major, NULL AS advisor_id, department_id"
	default:
		return "id, first_name, last_name, email, password_hash, NULL AS major, NULL AS advisor_id, NULL AS department_id"
	}
}

// ResolveByEmail finds the principal for an email, honoring role precedence.
// Returns sql.ErrNoRows when no identity table matches.
func (r *IdentityRepository) ResolveByEmail(ctx context.Context, email string) (*models.Principal, error) {
	for _, rt := range roleTables {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE email = $1 LIMIT 1", selectColumns(rt.role), rt.table)
		var principal models.Principal
		if err := r.db.GetContext(ctx, &principal, query, email); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("resolve %s by email: %w", strings.ToLower(string(rt.role)), err)
		}
		principal.Role = rt.role
		return &principal, nil
	}
	return nil, sql.ErrNoRows
}

// FindByID returns a principal by identifier within its role table.
func (r *IdentityRepository) FindByID(ctx context.Context, id string, role models.Role) (*models.Principal, error) {
	table, err := tableFor(role)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 LIMIT 1", selectColumns(role), table)
	var principal models.Principal
	if err := r.db.GetContext(ctx, &principal, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find principal by id: %w", err)
	}
	principal.Role = role
	return &principal, nil
}

// UpdatePassword updates the stored credential for a principal.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id string, role models.Role, passwordHash string) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("UPDATE %s SET password_hash = $2 WHERE id = $1", table)
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// profileColumns maps update fields to the columns each role table carries.
// Column names come from this fixed set, never from input.
func profileColumns(role models.Role, update models.ProfileUpdate) ([]string, []interface{}) {
	var cols []string
	var args []interface{}

	add := func(col string, value interface{}) {
		args = append(args, value)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)+1))
	}

	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if role == models.RoleStudent {
		if update.Major != nil {
			add("major", *update.Major)
		}
		if update.AdvisorID != nil {
			add("advisor_id", *update.AdvisorID)
		}
	}
	if role == models.RoleInstructor && update.DepartmentID != nil {
		add("department_id", *update.DepartmentID)
	}
	return cols, args
}

// UpdateProfile applies a structured partial update in a single statement.
func (r *IdentityRepository) UpdateProfile(ctx context.Context, id string, role models.Role, update models.ProfileUpdate) error {
	table, err := tableFor(role)
	if err != nil {
		return err
	}
	cols, args := profileColumns(role, update)
	if len(cols) == 0 {
		return nil
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1", table, strings.Join(cols, ", "))
	res, err := r.db.ExecContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AssignAdvisor points a student at an advising instructor.
func (r *IdentityRepository) AssignAdvisor(ctx context.Context, studentID, advisorID string) error {
	const query = `UPDATE students SET advisor_id = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, studentID, advisorID)
	if err != nil {
		return fmt.Errorf("assign advisor: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRefreshToken persists a refresh token entry.
func (r *IdentityRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO refresh_tokens (id, principal_id, role, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent)
        VALUES (:id, :principal_id, :role, :token, :expires_at, :created_at, :revoked, :revoked_at, :ip_address, :user_agent)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// FindRefreshToken returns a refresh token by token string.
func (r *IdentityRepository) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const query = `SELECT id, principal_id, role, token, expires_at, created_at, revoked, revoked_at, ip_address, user_agent
        FROM refresh_tokens WHERE token = $1 LIMIT 1`
	var rt models.RefreshToken
	if err := r.db.GetContext(ctx, &rt, query, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks a token as revoked.
func (r *IdentityRepository) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, revokedAt); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokePrincipalRefreshTokens revokes every outstanding token for a
// principal. Login calls this before issuing new tokens so no state from an
// earlier session carries over.
func (r *IdentityRepository) RevokePrincipalRefreshTokens(ctx context.Context, principalID string) error {
	const query = `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE principal_id = $1 AND revoked = FALSE`
	if _, err := r.db.ExecContext(ctx, query, principalID, time.Now().UTC()); err != nil {
		return fmt.Errorf("revoke principal refresh tokens: %w", err)
	}
	return nil
}

func tableFor(role models.Role) (string, error) {
	switch role {
	case models.RoleAdmin:
		return "admins", nil
	case models.RoleInstructor:
		return "instructors", nil
	case models.RoleStudent:
		return "students", nil
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}
}
