package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campushq/registrar-api/internal/models"
)

// Sentinel errors surfaced by the registration transaction. The service
// layer maps these onto the API error taxonomy.
var (
	ErrDuplicateEnrollment = errors.New("active enrollment already exists")
	ErrCapacityReached     = errors.New("section capacity reached")
)

// EnrollmentRepository handles persistence of the registration ledger.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Register creates an enrollment inside one transaction. The section row is
// locked first so the capacity check and insert act as a single unit; two
// registrations racing for the last seat serialize on the row lock.
func (r *EnrollmentRepository) Register(ctx context.Context, studentID, sectionID string) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin registration transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	const lockQuery = `SELECT capacity FROM sections WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &capacity, lockQuery, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock section: %w", err)
	}

	var duplicate bool
	const dupQuery = `SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND status = $3)`
	if err = tx.GetContext(ctx, &duplicate, dupQuery, studentID, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("check duplicate enrollment: %w", err)
	}
	if duplicate {
		err = ErrDuplicateEnrollment
		return nil, err
	}

	var enrolled int
	const countQuery = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	if err = tx.GetContext(ctx, &enrolled, countQuery, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("count enrolled: %w", err)
	}
	if enrolled >= capacity {
		err = ErrCapacityReached
		return nil, err
	}

	now := time.Now().UTC()
	enrollment = &models.Enrollment{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SectionID:  sectionID,
		Grade:      models.GradeTBD,
		Status:     models.EnrollmentStatusEnrolled,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
	const insertQuery = `INSERT INTO enrollments (id, student_id, section_id, grade, status, enrolled_at, updated_at)
        VALUES (:id, :student_id, :section_id, :grade, :status, :enrolled_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, enrollment); err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit registration: %w", err)
	}
	return enrollment, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, grade, status, enrolled_at, updated_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.grade, e.status, e.enrolled_at, e.updated_at,
        st.first_name || ' ' || st.last_name AS student_name, c.code AS course_code, c.title AS course_title,
        s.semester, s.year
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN students st ON st.id = e.student_id
        WHERE e.id = $1`
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
JOIN sections s ON s.id = e.section_id
JOIN courses c ON c.id = s.course_id
JOIN students st ON st.id = e.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "st.last_name",
		"course_code":  "c.code",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT e.id, e.student_id, e.section_id, e.grade, e.status, e.enrolled_at, e.updated_at,
        st.first_name || ' ' || st.last_name AS student_name, c.code AS course_code, c.title AS course_title,
        s.semester, s.year
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// DropOwned transitions an enrollment to dropped when it belongs to the
// student. A non-owned or unknown enrollment affects zero rows, which the
// caller treats as a silent no-op. Dropping twice is harmless.
func (r *EnrollmentRepository) DropOwned(ctx context.Context, studentID, enrollmentID string) error {
	const query = `UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND student_id = $2`
	if _, err := r.db.ExecContext(ctx, query, enrollmentID, studentID, models.EnrollmentStatusDropped, time.Now().UTC()); err != nil {
		return fmt.Errorf("drop enrollment: %w", err)
	}
	return nil
}

// UpdateGrade unconditionally overwrites the grade field.
func (r *EnrollmentRepository) UpdateGrade(ctx context.Context, id, grade string) error {
	const query = `UPDATE enrollments SET grade = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, grade, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus transitions an enrollment to the given status. Rows are never
// deleted; removal is always a status change.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Roster returns the enrolled students for a section.
func (r *EnrollmentRepository) Roster(ctx context.Context, sectionID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.grade, e.status, e.enrolled_at, e.updated_at,
        st.first_name || ' ' || st.last_name AS student_name, c.code AS course_code, c.title AS course_title,
        s.semester, s.year
        FROM enrollments e
        JOIN sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        JOIN students st ON st.id = e.student_id
        WHERE e.section_id = $1 AND e.status = $2
        ORDER BY st.last_name, st.first_name`
	var roster []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &roster, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("section roster: %w", err)
	}
	return roster, nil
}
