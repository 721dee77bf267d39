package reconcile

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"attendance_app_backend/models"
)

// WriteStatisticsXLSX writes stats as a workbook with a course sheet and a
// student sheet.
func WriteStatisticsXLSX(w io.Writer, stats models.StatsResponse) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	courses := "Courses"
	if err := f.SetSheetName(f.GetSheetName(0), courses); err != nil {
		return err
	}
	if err := writeRows(f, courses, []any{"Course ID", "Course", "Slot", "Enrolled", "Marked", "Present", "Percentage"}, len(stats.Courses), func(i int) []any {
		c := stats.Courses[i]
		return []any{c.CourseID, c.CourseName, int(c.Slot), c.Enrolled, c.Marked, c.Present, percentCell(c.Ratio)}
	}); err != nil {
		return err
	}

	students := "Students"
	if _, err := f.NewSheet(students); err != nil {
		return err
	}
	if err := writeRows(f, students, []any{"Student ID", "First name", "Last name", "Marked", "Present", "Percentage"}, len(stats.Students), func(i int) []any {
		s := stats.Students[i]
		return []any{s.StudentID, s.FirstName, s.LastName, s.Marked, s.Present, percentCell(s.Ratio)}
	}); err != nil {
		return err
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return err
	}
	if err := writeRows(f, summary, []any{"From", "To", "Marked", "Present", "Percentage"}, 1, func(int) []any {
		return []any{stats.From, stats.To, stats.Overall.Marked, stats.Overall.Present, percentCell(stats.Overall)}
	}); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, header []any, n int, row func(int) []any) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		values := row(i)
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return err
		}
	}
	return nil
}

// percentCell leaves the cell blank when the ratio is undefined.
func percentCell(r models.Ratio) any {
	if r.Undefined {
		return ""
	}
	return r.Percentage
}
