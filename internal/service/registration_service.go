package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/registrar-api/internal/models"
	"github.com/campushq/registrar-api/internal/repository"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
)

type registrationLedger interface {
	Register(ctx context.Context, studentID, sectionID string) (*models.Enrollment, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	DropOwned(ctx context.Context, studentID, enrollmentID string) error
	UpdateGrade(ctx context.Context, id, grade string) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

// RegisterRequest describes a registration payload.
type RegisterRequest struct {
	SectionID string `json:"section_id" validate:"required"`
}

// SetGradeRequest describes a grade assignment payload.
type SetGradeRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// BulkGradeRequest carries a batch of grade assignments for one section.
type BulkGradeRequest struct {
	Entries []models.GradeEntry `json:"entries" validate:"required,min=1,dive"`
}

// reportsCachePattern covers every cached report payload. Any enrollment or
// grade mutation invalidates the whole namespace rather than tracking which
// departments or terms a row touches.
const reportsCachePattern = "reports:*"

// RegistrationService enforces the enrollment invariants of the ledger.
type RegistrationService struct {
	ledger    registrationLedger
	sections  sectionReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService. The cache may be nil
// when report caching is disabled.
func NewRegistrationService(ledger registrationLedger, sections sectionReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{ledger: ledger, sections: sections, cache: cache, validator: validate, logger: logger}
}

// Register enrolls a student into a section. Duplicate active registrations
// and capacity overruns are rejected; the check-and-insert runs as one
// transaction in the ledger.
func (s *RegistrationService) Register(ctx context.Context, studentID string, req RegisterRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	enrollment, err := s.ledger.Register(ctx, studentID, req.SectionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEnrollment):
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		case errors.Is(err, repository.ErrCapacityReached):
			return nil, appErrors.Clone(appErrors.ErrSectionFull, "")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register")
		}
	}

	s.cache.Invalidate(ctx, reportsCachePattern)

	detail, err := s.ledger.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// Drop transitions a student's own enrollment to dropped. An enrollment that
// does not belong to the student is a silent no-op, and dropping twice is
// harmless.
func (s *RegistrationService) Drop(ctx context.Context, studentID, enrollmentID string) error {
	if err := s.ledger.DropOwned(ctx, studentID, enrollmentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}
	s.cache.Invalidate(ctx, reportsCachePattern)
	return nil
}

// ListForStudent returns the student's enrollments.
func (s *RegistrationService) ListForStudent(ctx context.Context, studentID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.StudentID = studentID
	return s.list(ctx, filter)
}

func (s *RegistrationService) list(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return enrollments, pagination, nil
}

// SetGrade overwrites the grade on an enrollment in a section taught by the
// instructor. Grade values are not constrained to the letter set; anything
// outside it is simply excluded from GPA reporting.
func (s *RegistrationService) SetGrade(ctx context.Context, instructorID, enrollmentID string, req SetGradeRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if err := s.authorizeInstructor(ctx, instructorID, enrollmentID); err != nil {
		return nil, err
	}

	if err := s.ledger.UpdateGrade(ctx, enrollmentID, req.Grade); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set grade")
	}
	s.cache.Invalidate(ctx, reportsCachePattern)

	detail, err := s.ledger.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	return detail, nil
}

// RemoveFromSection is the instructor-initiated removal: a status transition
// to dropped, never a hard delete, so the historical record stays intact.
func (s *RegistrationService) RemoveFromSection(ctx context.Context, instructorID, enrollmentID string) error {
	if err := s.authorizeInstructor(ctx, instructorID, enrollmentID); err != nil {
		return err
	}

	if err := s.ledger.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusDropped); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
	}
	s.cache.Invalidate(ctx, reportsCachePattern)
	return nil
}

// BulkSetGrades applies grade assignments best-effort: a failing row is
// logged and counted but does not abort the batch.
func (s *RegistrationService) BulkSetGrades(ctx context.Context, instructorID, sectionID string, req BulkGradeRequest) (*models.BulkGradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}

	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "section is not taught by instructor")
	}

	result := &models.BulkGradeResult{}
	for _, entry := range req.Entries {
		enrollment, err := s.ledger.FindByID(ctx, entry.EnrollmentID)
		if err == nil && enrollment.SectionID != sectionID {
			err = fmt.Errorf("enrollment %s not in section %s", entry.EnrollmentID, sectionID)
		}
		if err == nil {
			err = s.ledger.UpdateGrade(ctx, entry.EnrollmentID, entry.Grade)
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", entry.EnrollmentID, err))
			s.logger.Warn("bulk grade entry failed",
				zap.String("enrollment_id", entry.EnrollmentID),
				zap.Error(err))
			continue
		}
		result.Updated++
	}
	if result.Updated > 0 {
		s.cache.Invalidate(ctx, reportsCachePattern)
	}
	return result, nil
}

// Roster returns the enrolled students for a section taught by the instructor.
func (s *RegistrationService) Roster(ctx context.Context, instructorID, sectionID string) ([]models.EnrollmentDetail, error) {
	section, err := s.sections.FindByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.InstructorID != instructorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "section is not taught by instructor")
	}

	roster, err := s.ledger.Roster(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return roster, nil
}

func (s *RegistrationService) authorizeInstructor(ctx context.Context, instructorID, enrollmentID string) error {
	enrollment, err := s.ledger.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	section, err := s.sections.FindByID(ctx, enrollment.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if section.InstructorID != instructorID {
		return appErrors.Clone(appErrors.ErrForbidden, "section is not taught by instructor")
	}
	return nil
}
