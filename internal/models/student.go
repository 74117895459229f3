package models

import "time"

// StudentEnrollmentStatus represents whether a student holds a committed enrollment.
type StudentEnrollmentStatus string

// Possible student enrollment statuses.
const (
	StudentStatusNotEnrolled StudentEnrollmentStatus = "Not Enrolled"
	StudentStatusEnrolled    StudentEnrollmentStatus = "Enrolled"
)

// Student represents a learner registered in the institution.
type Student struct {
	ID               string                  `db:"student_id" json:"student_id"`
	FullName         string                  `db:"full_name" json:"full_name"`
	Program          string                  `db:"program" json:"program"`
	YearLevel        int                     `db:"year_level" json:"year_level"`
	EnrollmentStatus StudentEnrollmentStatus `db:"enrollment_status" json:"enrollment_status"`
	PasswordHash     string                  `db:"password_hash" json:"-"`
	CreatedAt        time.Time               `db:"created_at" json:"created_at"`
}
