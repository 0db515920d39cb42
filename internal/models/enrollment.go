package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment. Rows are never
// deleted; state only ever transitions.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentStatusDropped   EnrollmentStatus = "dropped"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
)

// GradeTBD is the placeholder grade assigned at registration time.
const GradeTBD = "TBD"

// Enrollment captures a student's registration to a section.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	Grade      string           `db:"grade" json:"grade"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with student and section info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Semester    string `db:"semester" json:"semester"`
	Year        int    `db:"year" json:"year"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SectionID string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// GradeEntry is one row of a bulk grade submission.
type GradeEntry struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
	Grade        string `json:"grade" validate:"required"`
}

// BulkGradeResult summarises a best-effort bulk grade update.
type BulkGradeResult struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
