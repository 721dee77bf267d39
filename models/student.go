package models

type Student struct {
	ID                int64  `json:"id" bson:"_id"`
	Position          int    `json:"-" bson:"position"`
	FirstName         string `json:"first_name" bson:"first_name"`
	LastName          string `json:"last_name" bson:"last_name"`
	MorningCourseID   int    `json:"morning_course_id" bson:"morning_course_id"`
	AfternoonCourseID int    `json:"afternoon_course_id" bson:"afternoon_course_id"`
}

// CourseID returns the student's course for the given slot.
func (s Student) CourseID(slot Slot) int {
	if slot == AfternoonSlot {
		return s.AfternoonCourseID
	}
	return s.MorningCourseID
}

// Attends reports whether courseID is one of the student's two courses.
func (s Student) Attends(courseID int) bool {
	return s.MorningCourseID == courseID || s.AfternoonCourseID == courseID
}

type StudentWithCoursesResponse struct {
	Student
	MorningCourseName   string `json:"morning_course_name"`
	AfternoonCourseName string `json:"afternoon_course_name"`
}
