// Package ledger stores one presence flag per (student, course, date).
// A key that was never marked reads as not present.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"attendance_app_backend/models"
	"attendance_app_backend/store"
)

const name = "attendance_app_backend/ledger"

// DateLayout is the calendar-date form every record is keyed by.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidRange = errors.New("invalid date range")
	// ErrDivisionUndefined is returned with a 0 percentage when nothing was marked.
	ErrDivisionUndefined = errors.New("percentage undefined: no marked records")
)

var marks, _ = otel.Meter(name).Int64Counter(
	"attendance.marks",
	metric.WithDescription("Presence marks written to the ledger"),
)

// ParseDate canonicalises s to YYYY-MM-DD.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t.Format(DateLayout), nil
}

// ParseRange canonicalises an inclusive range. An empty to means from.
func ParseRange(from, to string) (string, string, error) {
	f, err := ParseDate(from)
	if err != nil {
		return "", "", err
	}
	if strings.TrimSpace(to) == "" {
		return f, f, nil
	}
	t, err := ParseDate(to)
	if err != nil {
		return "", "", err
	}
	if f > t {
		return "", "", fmt.Errorf("%w: %s is after %s", ErrInvalidRange, f, t)
	}
	return f, t, nil
}

// Percentage returns round(100*present/total). With total == 0 it returns 0
// and ErrDivisionUndefined.
func Percentage(present, total int) (int, error) {
	if total == 0 {
		return 0, ErrDivisionUndefined
	}
	return int(math.Round(100 * float64(present) / float64(total))), nil
}

// NewRatio builds the aggregate reported by the statistics endpoints.
func NewRatio(present, total int) models.Ratio {
	pct, err := Percentage(present, total)
	return models.Ratio{
		Marked:     total,
		Present:    present,
		Percentage: pct,
		Undefined:  errors.Is(err, ErrDivisionUndefined),
	}
}

type Ledger struct {
	store store.AttendanceStore
	now   func() time.Time
}

func New(st store.AttendanceStore) *Ledger {
	return &Ledger{store: st, now: time.Now}
}

// MarkPresence upserts the record for (studentID, courseID, date). The store
// resolves concurrent writes to the same key; the last one wins.
func (l *Ledger) MarkPresence(ctx context.Context, studentID int64, courseID int, date string, present bool) (models.AttendanceRecord, error) {
	day, err := ParseDate(date)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	rec, err := l.store.UpsertAttendance(ctx, models.AttendanceRecord{
		StudentID: studentID,
		CourseID:  courseID,
		Date:      day,
		Present:   present,
		UpdatedAt: l.now().UTC(),
	})
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("error marking presence: %w", err)
	}
	marks.Add(ctx, 1, metric.WithAttributes(attribute.Bool("present", present)))
	return rec, nil
}

func (l *Ledger) ForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	recs, err := l.store.AttendanceForDate(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("error reading attendance for %s: %w", day, err)
	}
	return recs, nil
}

func (l *Ledger) Snapshot(ctx context.Context, date string) (*Snapshot, error) {
	recs, err := l.ForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	day, _ := ParseDate(date)
	return NewSnapshot(day, recs), nil
}

func (l *Ledger) IsPresent(ctx context.Context, studentID int64, courseID int, date string) (bool, error) {
	day, err := ParseDate(date)
	if err != nil {
		return false, err
	}
	rec, err := l.store.Attendance(ctx, studentID, courseID, day)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading attendance: %w", err)
	}
	return rec.Present, nil
}

// Range returns the records with from <= date <= to.
func (l *Ledger) Range(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	f, t, err := ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	recs, err := l.store.AttendanceBetween(ctx, f, t)
	if err != nil {
		return nil, fmt.Errorf("error reading attendance between %s and %s: %w", f, t, err)
	}
	return recs, nil
}
