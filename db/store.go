package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"attendance_app_backend/models"
	"attendance_app_backend/store"
)

const timeLayout = time.RFC3339Nano

var _ store.Store = (*SQLStore)(nil)

// SQLStore implements store.Store over PostgreSQL or SQLite.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close(context.Context) error { return s.db.Close() }

// mapError turns unique violations into store.DuplicateKeyError.
func mapError(table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &store.DuplicateKeyError{Table: table, Key: pqErr.Constraint, Err: err}
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) &&
		(liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || liteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
		return &store.DuplicateKeyError{Table: table, Err: err}
	}
	return err
}

func (s *SQLStore) RegistryInfo(ctx context.Context) (models.RegistryInfo, error) {
	var info models.RegistryInfo
	var updatedAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT version, fingerprint, updated_at FROM registry_meta WHERE id = 1",
	).Scan(&info.Version, &info.Fingerprint, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RegistryInfo{}, nil
	}
	if err != nil {
		return models.RegistryInfo{}, fmt.Errorf("error fetching registry info: %w", err)
	}
	info.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return info, nil
}

func (s *SQLStore) Courses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, slot FROM courses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error fetching courses: %w", err)
	}
	defer rows.Close()

	var courses []models.Course
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Slot); err != nil {
			return nil, fmt.Errorf("error scanning course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

const studentColumns = "id, position, first_name, last_name, morning_course_id, afternoon_course_id"

func scanStudent(row interface{ Scan(...any) error }) (models.Student, error) {
	var st models.Student
	err := row.Scan(&st.ID, &st.Position, &st.FirstName, &st.LastName, &st.MorningCourseID, &st.AfternoonCourseID)
	return st, err
}

func (s *SQLStore) Students(ctx context.Context) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+studentColumns+" FROM students ORDER BY position, id")
	if err != nil {
		return nil, fmt.Errorf("error fetching students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *SQLStore) Student(ctx context.Context, id int64) (models.Student, error) {
	st, err := scanStudent(s.db.QueryRowContext(ctx, "SELECT "+studentColumns+" FROM students WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Student{}, store.ErrNotFound
	}
	if err != nil {
		return models.Student{}, fmt.Errorf("error fetching student: %w", err)
	}
	return st, nil
}

const attendanceColumns = "student_id, course_id, attendance_date, present, updated_at"

func scanAttendance(row interface{ Scan(...any) error }) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	var updatedAt string
	if err := row.Scan(&rec.StudentID, &rec.CourseID, &rec.Date, &rec.Present, &updatedAt); err != nil {
		return rec, err
	}
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return rec, nil
}

// UpsertAttendance relies on the primary key conflict clause, so concurrent
// writers on one key never create a second row.
func (s *SQLStore) UpsertAttendance(ctx context.Context, rec models.AttendanceRecord) (models.AttendanceRecord, error) {
	query := `
		INSERT INTO attendance (student_id, course_id, attendance_date, present, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, course_id, attendance_date)
		DO UPDATE SET present = EXCLUDED.present, updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns

	saved, err := scanAttendance(s.db.QueryRowContext(ctx, query,
		rec.StudentID, rec.CourseID, rec.Date, rec.Present, rec.UpdatedAt.UTC().Format(timeLayout)))
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("error saving attendance: %w", mapError("attendance", err))
	}
	return saved, nil
}

func (s *SQLStore) Attendance(ctx context.Context, studentID int64, courseID int, date string) (models.AttendanceRecord, error) {
	rec, err := scanAttendance(s.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE student_id = $1 AND course_id = $2 AND attendance_date = $3",
		studentID, courseID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AttendanceRecord{}, store.ErrNotFound
	}
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("error fetching attendance: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) AttendanceForDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	return s.AttendanceBetween(ctx, date, date)
}

func (s *SQLStore) AttendanceBetween(ctx context.Context, from, to string) ([]models.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance
		WHERE attendance_date >= $1 AND attendance_date <= $2
		ORDER BY attendance_date, student_id, course_id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("error fetching attendance: %w", err)
	}
	defer rows.Close()

	var recs []models.AttendanceRecord
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning attendance: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
