package roster

import (
	"fmt"
	"strings"
)

// Field is a canonical roster column.
type Field string

const (
	FieldStudentID       Field = "student_id"
	FieldFirstName       Field = "first_name"
	FieldLastName        Field = "last_name"
	FieldMorningCourse   Field = "morning_course"
	FieldAfternoonCourse Field = "afternoon_course"
)

// Fields lists the canonical columns in validation order.
var Fields = []Field{
	FieldStudentID,
	FieldFirstName,
	FieldLastName,
	FieldMorningCourse,
	FieldAfternoonCourse,
}

// Mapping maps each canonical field to the header texts that may carry it.
type Mapping map[Field][]string

// DefaultMapping accepts the school's Hebrew export headers and English ones.
func DefaultMapping() Mapping {
	return Mapping{
		FieldStudentID:       {"מספר תלמיד", "student id", "student_id", "studentid", "id"},
		FieldFirstName:       {"שם פרטי", "first name", "first_name", "firstname"},
		FieldLastName:        {"שם משפחה", "last name", "last_name", "lastname"},
		FieldMorningCourse:   {"קורס רצועה ראשונה", "morning course", "morning_course", "slot 1", "slot1"},
		FieldAfternoonCourse: {"קורס רצועה שנייה", "afternoon course", "afternoon_course", "slot 2", "slot2"},
	}
}

// MappingFrom builds a Mapping from configuration keyed by field name. Fields
// the configuration leaves out keep their default aliases.
func MappingFrom(aliases map[string][]string) (Mapping, error) {
	m := DefaultMapping()
	for k, v := range aliases {
		f := Field(k)
		if _, ok := m[f]; !ok {
			return nil, fmt.Errorf("unknown roster field %q", k)
		}
		if len(v) == 0 {
			return nil, fmt.Errorf("roster field %q has no header aliases", k)
		}
		m[f] = v
	}
	return m, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// columns returns the position of every canonical field within header.
func (m Mapping) columns(header []string) (map[Field]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		n := normalizeHeader(h)
		if _, dup := pos[n]; !dup && n != "" {
			pos[n] = i
		}
	}
	cols := make(map[Field]int, len(Fields))
	for _, f := range Fields {
		found := false
		for _, alias := range m[f] {
			if i, ok := pos[normalizeHeader(alias)]; ok {
				cols[f] = i
				found = true
				break
			}
		}
		if !found {
			return nil, &MissingColumnError{Field: f}
		}
	}
	return cols, nil
}
