package models

import "strings"

// Role identifies the kind of principal. Each principal carries exactly one role.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleInstructor Role = "INSTRUCTOR"
	RoleStudent    Role = "STUDENT"
)

// Principal is the unified identity record resolved from the per-role tables.
// Role-specific fields are nil for the roles that do not carry them.
type Principal struct {
	ID           string `db:"id" json:"id"`
	Role         Role   `db:"-" json:"role"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`

	// Student extension.
	Major     *string `db:"major" json:"major,omitempty"`
	AdvisorID *string `db:"advisor_id" json:"advisor_id,omitempty"`

	// Instructor extension.
	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
}

// FullName returns the display name used in responses and token claims.
func (p Principal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// ProfileUpdate is a structured partial update: only non-nil fields are
// written, in a single UPDATE statement.
type ProfileUpdate struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email"`
	Major        *string `json:"major,omitempty"`
	AdvisorID    *string `json:"advisor_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.Major == nil && u.AdvisorID == nil && u.DepartmentID == nil
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
