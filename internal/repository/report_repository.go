package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/registrar-api/internal/models"
)

// gradePointExpr maps a letter grade column to GPA points in SQL. It is
// generated from the models grade table so the SQL mapping cannot drift from
// the Go one. Grades outside the table map to NULL so AVG and COUNT skip
// them instead of treating them as zero.
var gradePointExpr = buildGradePointExpr()

func buildGradePointExpr() string {
	var b strings.Builder
	b.WriteString("CASE e.grade")
	for _, letter := range models.LetterGrades() {
		points, _ := models.GradePoint(letter)
		fmt.Fprintf(&b, " WHEN '%s' THEN %.1f", letter, points)
	}
	b.WriteString(" ELSE NULL END")
	return b.String()
}

// periodExpr encodes a section's (year, semester) as year*10+rank so a term
// range becomes one numeric comparison: Spring=1, Summer=2, Fall=3, else 4.
const periodExpr = `(s.year * 10 + CASE s.semester
        WHEN 'Spring' THEN 1 WHEN 'Summer' THEN 2 WHEN 'Fall' THEN 3 ELSE 4 END)`

// ReportRepository runs the aggregate reporting queries.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// AverageGPAByDepartment aggregates grade points per department, optionally
// restricted to a single department.
func (r *ReportRepository) AverageGPAByDepartment(ctx context.Context, departmentID string) ([]models.DepartmentGPA, error) {
	query := fmt.Sprintf(`SELECT d.id AS department_id, d.name AS department_name,
        AVG(%s) AS average_gpa, COUNT(%s) AS sample_size
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN departments d ON d.id = c.department_id`, gradePointExpr, gradePointExpr)
	var args []interface{}
	if departmentID != "" {
		query += " WHERE d.id = $1"
		args = append(args, departmentID)
	}
	query += fmt.Sprintf(" GROUP BY d.id, d.name HAVING COUNT(%s) > 0 ORDER BY d.name", gradePointExpr)

	var rows []models.DepartmentGPA
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("department gpa report: %w", err)
	}
	return rows, nil
}

// AverageGPAForCourse aggregates grade points for one course, optionally
// bounded by an inclusive (year, semester) range.
func (r *ReportRepository) AverageGPAForCourse(ctx context.Context, courseID string, from, to *models.Period) (*models.CourseGPA, error) {
	query := fmt.Sprintf(`SELECT c.id AS course_id, c.code AS course_code, c.title AS course_title,
        COALESCE(AVG(%s), 0) AS average_gpa, COUNT(%s) AS sample_size
        FROM courses c
        LEFT JOIN sections s ON s.course_id = c.id`, gradePointExpr, gradePointExpr)
	args := []interface{}{courseID}
	joinCond := ""
	if from != nil {
		args = append(args, from.Code())
		joinCond += fmt.Sprintf(" AND %s >= $%d", periodExpr, len(args))
	}
	if to != nil {
		args = append(args, to.Code())
		joinCond += fmt.Sprintf(" AND %s <= $%d", periodExpr, len(args))
	}
	query += joinCond
	query += `
        LEFT JOIN enrollments e ON e.section_id = s.id
        WHERE c.id = $1
        GROUP BY c.id, c.code, c.title`

	var row models.CourseGPA
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, err
	}
	return &row, nil
}

// BestCourses returns the top-N courses by average GPA for a term. Courses
// with no qualifying grades are excluded.
func (r *ReportRepository) BestCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error) {
	return r.rankedCourses(ctx, semester, year, limit, "DESC")
}

// WorstCourses returns the bottom-N courses by average GPA for a term.
func (r *ReportRepository) WorstCourses(ctx context.Context, semester string, year, limit int) ([]models.CourseGPA, error) {
	return r.rankedCourses(ctx, semester, year, limit, "ASC")
}

func (r *ReportRepository) rankedCourses(ctx context.Context, semester string, year, limit int, order string) ([]models.CourseGPA, error) {
	if order != "ASC" {
		order = "DESC"
	}
	query := fmt.Sprintf(`SELECT c.id AS course_id, c.code AS course_code, c.title AS course_title,
        AVG(%s) AS average_gpa, COUNT(%s) AS sample_size
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE s.semester = $1 AND s.year = $2
        GROUP BY c.id, c.code, c.title
        HAVING COUNT(%s) > 0
        ORDER BY average_gpa %s, c.code
        LIMIT $3`, gradePointExpr, gradePointExpr, gradePointExpr, order)

	var rows []models.CourseGPA
	if err := r.db.SelectContext(ctx, &rows, query, semester, year, limit); err != nil {
		return nil, fmt.Errorf("ranked courses report: %w", err)
	}
	return rows, nil
}

// StudentCountsByDepartment counts, per department, distinct students who
// ever enrolled in one of its courses and those currently enrolled.
func (r *ReportRepository) StudentCountsByDepartment(ctx context.Context) ([]models.DepartmentStudentCounts, error) {
	const query = `SELECT d.id AS department_id, d.name AS department_name,
        COUNT(DISTINCT e.student_id) AS ever_enrolled,
        COUNT(DISTINCT CASE WHEN e.status = 'enrolled' THEN e.student_id END) AS currently_enrolled
        FROM departments d
        LEFT JOIN courses c ON c.department_id = d.id
        LEFT JOIN sections s ON s.course_id = c.id
        LEFT JOIN enrollments e ON e.section_id = s.id
        GROUP BY d.id, d.name
        ORDER BY d.name`

	var rows []models.DepartmentStudentCounts
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("student counts report: %w", err)
	}
	return rows, nil
}
