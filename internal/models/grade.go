package models

import "strings"

// gradePoints is the fixed letter grade to GPA point mapping. Grades outside
// this table (including TBD and empty) are excluded from averages rather than
// counted as zero.
var gradePoints = map[string]float64{
	"A":  4.0,
	"A-": 3.7,
	"B+": 3.3,
	"B":  3.0,
	"B-": 2.7,
	"C+": 2.3,
	"C":  2.0,
	"C-": 1.7,
	"D+": 1.3,
	"D":  1.0,
	"F":  0.0,
}

// GradePoint maps a letter grade to its GPA point value. The second return
// is false when the grade does not participate in GPA computation.
func GradePoint(grade string) (float64, bool) {
	points, ok := gradePoints[strings.TrimSpace(grade)]
	return points, ok
}

// LetterGrades returns the recognised letter grades in descending point order.
func LetterGrades() []string {
	return []string{"A", "A-", "B+", "B", "B-", "C+", "C", "C-", "D+", "D", "F"}
}
