package models

import "time"

type AttendanceRecord struct {
	StudentID int64     `json:"student_id" bson:"student_id"`
	CourseID  int       `json:"course_id" bson:"course_id"`
	Date      string    `json:"date" bson:"date"`
	Present   bool      `json:"present" bson:"present"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type MarkPresenceRequest struct {
	StudentID *int64 `json:"student_id" binding:"required"`
	CourseID  int    `json:"course_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Present   *bool  `json:"present" binding:"required"`
}

// Mark is the tri-state value of one slot for one student on one date.
type Mark string

const (
	Unmarked      Mark = "unmarked"
	MarkedAbsent  Mark = "absent"
	MarkedPresent Mark = "present"
)

// Status is the user-facing combination of the morning and afternoon marks.
type Status string

const (
	StatusPresent          Status = "present"
	StatusMissingAfternoon Status = "missing_afternoon"
	StatusMissingMorning   Status = "missing_morning"
	StatusAbsent           Status = "absent"
)

type GapAlert struct {
	StudentID           int64  `json:"student_id"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	MorningCourseID     int    `json:"morning_course_id"`
	MorningCourseName   string `json:"morning_course_name"`
	AfternoonCourseID   int    `json:"afternoon_course_id"`
	AfternoonCourseName string `json:"afternoon_course_name"`
}

type StudentDay struct {
	StudentID           int64  `json:"student_id"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	MorningCourseID     int    `json:"morning_course_id"`
	MorningCourseName   string `json:"morning_course_name"`
	Morning             Mark   `json:"morning"`
	AfternoonCourseID   int    `json:"afternoon_course_id"`
	AfternoonCourseName string `json:"afternoon_course_name"`
	Afternoon           Mark   `json:"afternoon"`
	Status              Status `json:"status"`
}

type DayViewResponse struct {
	Date     string         `json:"date"`
	Students []StudentDay   `json:"students"`
	Counts   map[Status]int `json:"counts"`
	Alerts   []GapAlert     `json:"alerts"`
}

type CourseSheetEntry struct {
	StudentID int64  `json:"student_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Mark      Mark   `json:"mark"`
}

type CourseSheetResponse struct {
	Course   Course             `json:"course"`
	Date     string             `json:"date"`
	Students []CourseSheetEntry `json:"students"`
}
