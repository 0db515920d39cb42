package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/registrar-api/internal/models"
	appErrors "github.com/campushq/registrar-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Prerequisites(ctx context.Context, courseID string) ([]models.Course, error)
	AddPrerequisite(ctx context.Context, courseID, prereqCourseID string) error
	RemovePrerequisite(ctx context.Context, courseID, prereqCourseID string) error
	ListDepartments(ctx context.Context) ([]models.Department, error)
}

type sectionLister interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
}

// PrerequisiteRequest describes a prerequisite edge payload.
type PrerequisiteRequest struct {
	PrereqCourseID string `json:"prereq_course_id" validate:"required"`
}

// CatalogService exposes the course catalog and prerequisite graph.
type CatalogService struct {
	courses   courseRepository
	sections  sectionLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses courseRepository, sections sectionLister, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, sections: sections, validator: validate, logger: logger}
}

// ListCourses returns catalog courses with pagination metadata.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetCourse returns a course together with its prerequisites.
func (s *CatalogService) GetCourse(ctx context.Context, id string) (*models.Course, []models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	prereqs, err := s.courses.Prerequisites(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	return course, prereqs, nil
}

// AddPrerequisite links a prerequisite course. Adding an existing edge is a
// no-op, and a course cannot require itself.
func (s *CatalogService) AddPrerequisite(ctx context.Context, courseID string, req PrerequisiteRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid prerequisite payload")
	}
	if courseID == req.PrereqCourseID {
		return appErrors.Clone(appErrors.ErrValidation, "course cannot be its own prerequisite")
	}
	for _, id := range []string{courseID, req.PrereqCourseID} {
		if _, err := s.courses.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}
	if err := s.courses.AddPrerequisite(ctx, courseID, req.PrereqCourseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add prerequisite")
	}
	return nil
}

// RemovePrerequisite unlinks a prerequisite course.
func (s *CatalogService) RemovePrerequisite(ctx context.Context, courseID, prereqCourseID string) error {
	if err := s.courses.RemovePrerequisite(ctx, courseID, prereqCourseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove prerequisite")
	}
	return nil
}

// ListSections returns sections with pagination metadata.
func (s *CatalogService) ListSections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.sections.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetSection returns a section with catalog and occupancy info.
func (s *CatalogService) GetSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.sections.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// ListDepartments returns all departments.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.courses.ListDepartments(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return departments, nil
}
