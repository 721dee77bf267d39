// Package store defines the persistence contract shared by the SQL and document
// backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"attendance_app_backend/models"
)

// ErrNotFound is returned by point lookups that match nothing.
var ErrNotFound = errors.New("not found")

// DuplicateKeyError reports a unique-key collision the store could not resolve
// on its own. Attendance upserts never surface it.
type DuplicateKeyError struct {
	Table string
	Key   string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s in %s", e.Key, e.Table)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

func (e *DuplicateKeyError) Code() string { return "duplicate_key" }

type CourseStore interface {
	RegistryInfo(ctx context.Context) (models.RegistryInfo, error)
	Courses(ctx context.Context) ([]models.Course, error)
	// ReplaceRegistry swaps courses and roster in one transaction and returns
	// the new registry version.
	ReplaceRegistry(ctx context.Context, courses []models.Course, fingerprint string, roster []models.Student) (int, error)
}

type RosterStore interface {
	Students(ctx context.Context) ([]models.Student, error)
	Student(ctx context.Context, id int64) (models.Student, error)
	// ReplaceRoster deletes every student and inserts roster in one transaction.
	ReplaceRoster(ctx context.Context, roster []models.Student) error
}

type AttendanceStore interface {
	UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error)
	Attendance(ctx context.Context, studentID int64, courseID int, date string) (models.AttendanceRecord, error)
	AttendanceForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error)
	// AttendanceBetween returns records with from <= date <= to.
	AttendanceBetween(ctx context.Context, from, to string) ([]models.AttendanceRecord, error)
}

type Store interface {
	CourseStore
	RosterStore
	AttendanceStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
