package models

// Ratio is a present/marked aggregate. Undefined is set when nothing was marked,
// in which case Percentage is reported as 0.
type Ratio struct {
	Marked     int  `json:"marked"`
	Present    int  `json:"present"`
	Percentage int  `json:"percentage"`
	Undefined  bool `json:"undefined,omitempty"`
}

type CourseStats struct {
	CourseID   int    `json:"course_id"`
	CourseName string `json:"course_name"`
	Slot       Slot   `json:"slot"`
	Enrolled   int    `json:"enrolled"`
	Ratio
}

type StudentStats struct {
	StudentID int64  `json:"student_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Ratio
}

type StatsResponse struct {
	From     string         `json:"from"`
	To       string         `json:"to"`
	Overall  Ratio          `json:"overall"`
	Courses  []CourseStats  `json:"courses"`
	Students []StudentStats `json:"students"`
}
