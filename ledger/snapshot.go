package ledger

import "attendance_app_backend/models"

type key struct {
	student int64
	course  int
}

// Snapshot is the ledger content for a single date.
type Snapshot struct {
	date  string
	marks map[key]bool
}

// NewSnapshot indexes recs; records for other dates are ignored.
func NewSnapshot(date string, recs []models.AttendanceRecord) *Snapshot {
	s := &Snapshot{date: date, marks: make(map[key]bool, len(recs))}
	for _, r := range recs {
		if r.Date != date {
			continue
		}
		s.marks[key{r.StudentID, r.CourseID}] = r.Present
	}
	return s
}

func (s *Snapshot) Date() string { return s.date }

func (s *Snapshot) Len() int { return len(s.marks) }

func (s *Snapshot) Mark(studentID int64, courseID int) models.Mark {
	present, ok := s.marks[key{studentID, courseID}]
	switch {
	case !ok:
		return models.Unmarked
	case present:
		return models.MarkedPresent
	default:
		return models.MarkedAbsent
	}
}

func (s *Snapshot) IsPresent(studentID int64, courseID int) bool {
	return s.marks[key{studentID, courseID}]
}
