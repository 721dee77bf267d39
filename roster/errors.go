package roster

import (
	"errors"
	"fmt"

	"attendance_app_backend/models"
)

var (
	ErrEmptySource       = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv, .xlsx or .xls")
	ErrUnreadableFile    = errors.New("file could not be read")
)

type MissingFieldError struct {
	Field Field
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %s", e.Field)
}

func (e *MissingFieldError) Code() string { return "missing_field" }

type InvalidIdentifierError struct {
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid student identifier %q", e.Value)
}

func (e *InvalidIdentifierError) Code() string { return "invalid_identifier" }

type InvalidCourseError struct {
	Slot  models.Slot
	Value string
}

func (e *InvalidCourseError) Error() string {
	return fmt.Sprintf("invalid %s course %q", e.Slot, e.Value)
}

func (e *InvalidCourseError) Code() string { return "invalid_course" }

type DuplicateStudentError struct {
	ID        int64
	FirstLine int
}

func (e *DuplicateStudentError) Error() string {
	return fmt.Sprintf("student %d already appears on row %d", e.ID, e.FirstLine)
}

func (e *DuplicateStudentError) Code() string { return "duplicate_student" }

// MissingColumnError fails the whole file: the header has no column for Field.
type MissingColumnError struct {
	Field Field
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("no column for %s in header", e.Field)
}

func (e *MissingColumnError) Code() string { return "missing_column" }
