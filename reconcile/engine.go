package reconcile

import (
	"context"
	"errors"
	"fmt"

	"attendance_app_backend/ledger"
	"attendance_app_backend/models"
	"attendance_app_backend/registry"
)

var (
	ErrCourseNotFound = errors.New("course not found")
	// ErrNotEnrolled means the course is neither of the student's two courses.
	ErrNotEnrolled = errors.New("student is not enrolled in this course")
)

type RosterReader interface {
	Students(ctx context.Context) ([]models.Student, error)
	Student(ctx context.Context, id int64) (models.Student, error)
}

// Engine reads the roster and a ledger snapshot and runs the pure functions
// of this package over them.
type Engine struct {
	roster  RosterReader
	ledger  *ledger.Ledger
	catalog *registry.Catalog
}

func NewEngine(roster RosterReader, l *ledger.Ledger, catalog *registry.Catalog) *Engine {
	return &Engine{roster: roster, ledger: l, catalog: catalog}
}

// MarkPresence records a mark after checking the student is on the roster
// (store.ErrNotFound otherwise) and assigned to the course.
func (e *Engine) MarkPresence(ctx context.Context, studentID int64, courseID int, date string, present bool) (models.AttendanceRecord, error) {
	st, err := e.roster.Student(ctx, studentID)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if !st.Attends(courseID) {
		return models.AttendanceRecord{}, ErrNotEnrolled
	}
	return e.ledger.MarkPresence(ctx, studentID, courseID, date, present)
}

func (e *Engine) load(ctx context.Context, date string) ([]models.Student, *ledger.Snapshot, error) {
	snap, err := e.ledger.Snapshot(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	students, err := e.roster.Students(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading roster: %w", err)
	}
	return students, snap, nil
}

func (e *Engine) ComputeAfternoonGapAlert(ctx context.Context, date string) ([]models.GapAlert, error) {
	students, snap, err := e.load(ctx, date)
	if err != nil {
		return nil, err
	}
	return AfternoonGapAlert(students, e.catalog.Current(), snap), nil
}

func (e *Engine) DayView(ctx context.Context, date string) (models.DayViewResponse, error) {
	students, snap, err := e.load(ctx, date)
	if err != nil {
		return models.DayViewResponse{}, err
	}
	return DayView(students, e.catalog.Current(), snap), nil
}

func (e *Engine) CourseSheet(ctx context.Context, courseID int, date string) (models.CourseSheetResponse, error) {
	course, ok := e.catalog.Current().Lookup(courseID)
	if !ok {
		return models.CourseSheetResponse{}, ErrCourseNotFound
	}
	students, snap, err := e.load(ctx, date)
	if err != nil {
		return models.CourseSheetResponse{}, err
	}
	return CourseSheet(course, students, snap), nil
}

func (e *Engine) Statistics(ctx context.Context, from, to string) (models.StatsResponse, error) {
	f, t, err := ledger.ParseRange(from, to)
	if err != nil {
		return models.StatsResponse{}, err
	}
	recs, err := e.ledger.Range(ctx, f, t)
	if err != nil {
		return models.StatsResponse{}, err
	}
	students, err := e.roster.Students(ctx)
	if err != nil {
		return models.StatsResponse{}, fmt.Errorf("error reading roster: %w", err)
	}
	return Statistics(f, t, students, e.catalog.Current(), recs), nil
}
