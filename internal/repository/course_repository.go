package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/registrar-api/internal/models"
)

// CourseRepository handles persistence of the course catalog and the
// prerequisite graph.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, department_id, code, title, credits FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns catalog courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)+1))
		args = append(args, filter.DepartmentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(title) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, department_id, code, title, credits %s ORDER BY code LIMIT %d OFFSET %d", base, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Prerequisites returns the prerequisite courses for a course.
func (r *CourseRepository) Prerequisites(ctx context.Context, courseID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.department_id, c.code, c.title, c.credits
        FROM course_prerequisites p
        JOIN courses c ON c.id = p.prereq_course_id
        WHERE p.course_id = $1
        ORDER BY c.code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return courses, nil
}

// AddPrerequisite inserts a prerequisite edge. Duplicate edges are ignored.
func (r *CourseRepository) AddPrerequisite(ctx context.Context, courseID, prereqCourseID string) error {
	const query = `INSERT INTO course_prerequisites (course_id, prereq_course_id)
        VALUES ($1, $2) ON CONFLICT (course_id, prereq_course_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, courseID, prereqCourseID); err != nil {
		return fmt.Errorf("add prerequisite: %w", err)
	}
	return nil
}

// RemovePrerequisite deletes a prerequisite edge.
func (r *CourseRepository) RemovePrerequisite(ctx context.Context, courseID, prereqCourseID string) error {
	const query = `DELETE FROM course_prerequisites WHERE course_id = $1 AND prereq_course_id = $2`
	if _, err := r.db.ExecContext(ctx, query, courseID, prereqCourseID); err != nil {
		return fmt.Errorf("remove prerequisite: %w", err)
	}
	return nil
}

// ListDepartments returns all departments.
func (r *CourseRepository) ListDepartments(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT id, name FROM departments ORDER BY name`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}
