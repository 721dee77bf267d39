package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attendance_app_backend/models"
)

// ReplaceRegistry swaps the course table and the roster in one transaction
// and bumps the registry version. A nil roster leaves no students behind.
func (s *SQLStore) ReplaceRegistry(ctx context.Context, courses []models.Course, fingerprint string, roster []models.Student) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM students"); err != nil {
		return 0, fmt.Errorf("error clearing students: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
		return 0, fmt.Errorf("error clearing courses: %w", err)
	}

	for _, c := range courses {
		_, err := tx.ExecContext(ctx, "INSERT INTO courses (id, name, slot) VALUES ($1, $2, $3)", c.ID, c.Name, c.Slot)
		if err != nil {
			return 0, fmt.Errorf("error seeding course %q: %w", c.Name, mapError("courses", err))
		}
	}

	if err := insertStudents(ctx, tx, roster); err != nil {
		return 0, err
	}

	var version int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registry_meta (id, version, fingerprint, updated_at)
		VALUES (1, 1, $1, $2)
		ON CONFLICT (id)
		DO UPDATE SET version = registry_meta.version + 1, fingerprint = EXCLUDED.fingerprint, updated_at = EXCLUDED.updated_at
		RETURNING version`,
		fingerprint, time.Now().UTC().Format(timeLayout),
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("error updating registry version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing transaction: %w", err)
	}
	return version, nil
}

// ReplaceRoster deletes every student and inserts roster; on any error the
// previous roster is kept.
func (s *SQLStore) ReplaceRoster(ctx context.Context, roster []models.Student) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM students"); err != nil {
		return fmt.Errorf("error clearing students: %w", err)
	}
	if err := insertStudents(ctx, tx, roster); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func insertStudents(ctx context.Context, tx *sql.Tx, roster []models.Student) error {
	if len(roster) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO students (id, position, first_name, last_name, morning_course_id, afternoon_course_id)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("error preparing student insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range roster {
		_, err := stmt.ExecContext(ctx, st.ID, st.Position, st.FirstName, st.LastName, st.MorningCourseID, st.AfternoonCourseID)
		if err != nil {
			return fmt.Errorf("error inserting student %d: %w", st.ID, mapError("students", err))
		}
	}
	return nil
}
