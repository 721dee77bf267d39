// Package reconcile derives per-date presence statuses, the afternoon gap
// alert and attendance statistics from the roster and the ledger. Everything
// here is recomputed from a fresh snapshot on every call.
package reconcile

import (
	"attendance_app_backend/ledger"
	"attendance_app_backend/models"
	"attendance_app_backend/registry"
)

// StatusOf combines the two slot marks. Only a present mark counts as present.
func StatusOf(morning, afternoon models.Mark) models.Status {
	m := morning == models.MarkedPresent
	a := afternoon == models.MarkedPresent
	switch {
	case m && a:
		return models.StatusPresent
	case m:
		return models.StatusMissingAfternoon
	case a:
		return models.StatusMissingMorning
	default:
		return models.StatusAbsent
	}
}

// AfternoonGapAlert lists, in roster order, the students present in their
// morning course and not marked present in their afternoon course.
func AfternoonGapAlert(roster []models.Student, reg *registry.Registry, snap *ledger.Snapshot) []models.GapAlert {
	alerts := []models.GapAlert{}
	for _, s := range roster {
		if !snap.IsPresent(s.ID, s.MorningCourseID) {
			continue
		}
		if snap.IsPresent(s.ID, s.AfternoonCourseID) {
			continue
		}
		alerts = append(alerts, models.GapAlert{
			StudentID:           s.ID,
			FirstName:           s.FirstName,
			LastName:            s.LastName,
			MorningCourseID:     s.MorningCourseID,
			MorningCourseName:   reg.Name(s.MorningCourseID),
			AfternoonCourseID:   s.AfternoonCourseID,
			AfternoonCourseName: reg.Name(s.AfternoonCourseID),
		})
	}
	return alerts
}

func DayView(roster []models.Student, reg *registry.Registry, snap *ledger.Snapshot) models.DayViewResponse {
	view := models.DayViewResponse{
		Date:     snap.Date(),
		Students: make([]models.StudentDay, 0, len(roster)),
		Counts: map[models.Status]int{
			models.StatusPresent:          0,
			models.StatusMissingAfternoon: 0,
			models.StatusMissingMorning:   0,
			models.StatusAbsent:           0,
		},
		Alerts: AfternoonGapAlert(roster, reg, snap),
	}
	for _, s := range roster {
		morning := snap.Mark(s.ID, s.MorningCourseID)
		afternoon := snap.Mark(s.ID, s.AfternoonCourseID)
		status := StatusOf(morning, afternoon)
		view.Counts[status]++
		view.Students = append(view.Students, models.StudentDay{
			StudentID:           s.ID,
			FirstName:           s.FirstName,
			LastName:            s.LastName,
			MorningCourseID:     s.MorningCourseID,
			MorningCourseName:   reg.Name(s.MorningCourseID),
			Morning:             morning,
			AfternoonCourseID:   s.AfternoonCourseID,
			AfternoonCourseName: reg.Name(s.AfternoonCourseID),
			Afternoon:           afternoon,
			Status:              status,
		})
	}
	return view
}

// CourseSheet lists the students assigned to course with their mark.
func CourseSheet(course models.Course, roster []models.Student, snap *ledger.Snapshot) models.CourseSheetResponse {
	sheet := models.CourseSheetResponse{
		Course:   course,
		Date:     snap.Date(),
		Students: []models.CourseSheetEntry{},
	}
	for _, s := range roster {
		if s.CourseID(course.Slot) != course.ID {
			continue
		}
		sheet.Students = append(sheet.Students, models.CourseSheetEntry{
			StudentID: s.ID,
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Mark:      snap.Mark(s.ID, course.ID),
		})
	}
	return sheet
}

type tally struct{ marked, present int }

func (t *tally) add(present bool) {
	t.marked++
	if present {
		t.present++
	}
}

// Statistics aggregates recs per course (registry order) and per student
// (roster order). Courses or students with nothing marked report an
// undefined ratio of 0. Records for course ids outside reg are skipped, so
// Overall always equals the sum of the course rows; marks of students who
// left the roster still count there but get no student row.
func Statistics(from, to string, roster []models.Student, reg *registry.Registry, recs []models.AttendanceRecord) models.StatsResponse {
	var overall tally
	byCourse := map[int]*tally{}
	byStudent := map[int64]*tally{}
	for _, r := range recs {
		if _, ok := reg.Lookup(r.CourseID); !ok {
			continue
		}
		overall.add(r.Present)
		if byCourse[r.CourseID] == nil {
			byCourse[r.CourseID] = &tally{}
		}
		byCourse[r.CourseID].add(r.Present)
		if byStudent[r.StudentID] == nil {
			byStudent[r.StudentID] = &tally{}
		}
		byStudent[r.StudentID].add(r.Present)
	}

	enrolled := map[int]int{}
	for _, s := range roster {
		enrolled[s.MorningCourseID]++
		enrolled[s.AfternoonCourseID]++
	}

	resp := models.StatsResponse{
		From:     from,
		To:       to,
		Overall:  ledger.NewRatio(overall.present, overall.marked),
		Courses:  make([]models.CourseStats, 0, reg.Len()),
		Students: make([]models.StudentStats, 0, len(roster)),
	}
	for _, c := range reg.Courses() {
		t := byCourse[c.ID]
		if t == nil {
			t = &tally{}
		}
		resp.Courses = append(resp.Courses, models.CourseStats{
			CourseID:   c.ID,
			CourseName: c.Name,
			Slot:       c.Slot,
			Enrolled:   enrolled[c.ID],
			Ratio:      ledger.NewRatio(t.present, t.marked),
		})
	}
	for _, s := range roster {
		t := byStudent[s.ID]
		if t == nil {
			t = &tally{}
		}
		resp.Students = append(resp.Students, models.StudentStats{
			StudentID: s.ID,
			FirstName: s.FirstName,
			LastName:  s.LastName,
			Ratio:     ledger.NewRatio(t.present, t.marked),
		})
	}
	return resp
}
