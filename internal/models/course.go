package models

// Department groups courses for reporting.
type Department struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Course is a catalog entry offered through sections.
type Course struct {
	ID           string `db:"id" json:"id"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Code         string `db:"code" json:"code"`
	Title        string `db:"title" json:"title"`
	Credits      int    `db:"credits" json:"credits"`
}

// CoursePrerequisite is a directed edge from a course to a course that must
// be completed first. Duplicate edges are ignored on insert.
type CoursePrerequisite struct {
	CourseID       string `db:"course_id" json:"course_id"`
	PrereqCourseID string `db:"prereq_course_id" json:"prereq_course_id"`
}

// CourseFilter defines filters supported by catalog list endpoints.
type CourseFilter struct {
	DepartmentID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
