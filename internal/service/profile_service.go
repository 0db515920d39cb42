package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/registrar-api/internal/models"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id string, role models.Role) (*models.Principal, error)
	UpdateProfile(ctx context.Context, id string, role models.Role, update models.ProfileUpdate) error
	AssignAdvisor(ctx context.Context, studentID, advisorID string) error
}

// AdvisorAssignment pairs a student with an advising instructor.
type AdvisorAssignment struct {
	StudentID string `json:"student_id" validate:"required"`
	AdvisorID string `json:"advisor_id" validate:"required"`
}

// AssignAdvisorsRequest carries a batch of advisor assignments.
type AssignAdvisorsRequest struct {
	Assignments []AdvisorAssignment `json:"assignments" validate:"required,min=1,dive"`
}

// AdvisorAssignmentResult summarises a best-effort batch assignment.
type AdvisorAssignmentResult struct {
	Assigned int      `json:"assigned"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ProfileService reads and edits principal profiles.
type ProfileService struct {
	repo      profileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs ProfileService.
func NewProfileService(repo profileRepository, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, validator: validate, logger: logger}
}

// Get returns the profile for a principal.
func (s *ProfileService) Get(ctx context.Context, id string, role models.Role) (*models.Principal, error) {
	principal, err := s.repo.FindByID(ctx, id, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return principal, nil
}

// Update applies a partial profile update. Required fields may not be
// blanked out.
func (s *ProfileService) Update(ctx context.Context, id string, role models.Role, update models.ProfileUpdate) (*models.Principal, error) {
	if err := s.validator.Struct(update); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	for field, value := range map[string]*string{
		"first_name": update.FirstName,
		"last_name":  update.LastName,
		"email":      update.Email,
	} {
		if value != nil && strings.TrimSpace(*value) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, field+" is required")
		}
	}

	if err := s.repo.UpdateProfile(ctx, id, role, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	principal, err := s.repo.FindByID(ctx, id, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload profile")
	}
	return principal, nil
}

// AssignAdvisors applies advisor assignments best-effort: one failing item
// does not abort the batch.
func (s *ProfileService) AssignAdvisors(ctx context.Context, req AssignAdvisorsRequest) (*AdvisorAssignmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advisor payload")
	}

	result := &AdvisorAssignmentResult{}
	for _, assignment := range req.Assignments {
		if err := s.repo.AssignAdvisor(ctx, assignment.StudentID, assignment.AdvisorID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", assignment.StudentID, err))
			s.logger.Warn("advisor assignment failed",
				zap.String("student_id", assignment.StudentID),
				zap.Error(err))
			continue
		}
		result.Assigned++
	}
	return result, nil
}
