package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is valid for both PostgreSQL and SQLite. Attendance rows carry no
// foreign key to students so history survives a roster replacement.
const Schema = `
CREATE TABLE IF NOT EXISTS registry_meta (
    id INTEGER PRIMARY KEY,
    version INTEGER NOT NULL,
    fingerprint VARCHAR(64) NOT NULL,
    updated_at VARCHAR(40) NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
    id INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    slot SMALLINT NOT NULL CHECK (slot IN (1, 2)),
    UNIQUE(slot, name)
);

CREATE TABLE IF NOT EXISTS students (
    id BIGINT PRIMARY KEY,
    position INTEGER NOT NULL,
    first_name VARCHAR(255) NOT NULL,
    last_name VARCHAR(255) NOT NULL,
    morning_course_id INTEGER NOT NULL REFERENCES courses(id),
    afternoon_course_id INTEGER NOT NULL REFERENCES courses(id)
);

CREATE TABLE IF NOT EXISTS attendance (
    student_id BIGINT NOT NULL,
    course_id INTEGER NOT NULL,
    attendance_date VARCHAR(10) NOT NULL,
    present BOOLEAN NOT NULL,
    updated_at VARCHAR(40) NOT NULL,
    PRIMARY KEY (student_id, course_id, attendance_date)
);

CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(attendance_date);
`

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("error initializing database schema: %w", err)
	}
	return nil
}
