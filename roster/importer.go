// Package roster reads spreadsheet exports of the student roster, validates
// every row and replaces the stored roster in one transaction.
package roster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"attendance_app_backend/models"
	"attendance_app_backend/registry"
)

const name = "attendance_app_backend/roster"

var (
	meter        = otel.Meter(name)
	rowsCount, _ = meter.Int64Counter("roster.rows",
		metric.WithDescription("Roster rows processed, by outcome"))
	importsCount, _ = meter.Int64Counter("roster.imports",
		metric.WithDescription("Roster imports, by result"))
)

type FailurePolicy string

const (
	// Partial reports bad rows and imports the valid ones.
	Partial FailurePolicy = "partial"
	// Abort stops at the first bad row and leaves the roster untouched.
	Abort FailurePolicy = "abort"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case Partial:
		return Partial, nil
	case Abort:
		return Abort, nil
	}
	return "", fmt.Errorf("invalid import failure policy %q (want partial or abort)", s)
}

type UnknownCoursePolicy string

const (
	Reject   UnknownCoursePolicy = "reject"
	Fallback UnknownCoursePolicy = "fallback"
)

func ParseUnknownCoursePolicy(s string) (UnknownCoursePolicy, error) {
	switch UnknownCoursePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case Reject:
		return Reject, nil
	case Fallback:
		return Fallback, nil
	}
	return "", fmt.Errorf("invalid unknown course policy %q (want reject or fallback)", s)
}

type Policy struct {
	OnFailure       FailurePolicy
	OnUnknownCourse UnknownCoursePolicy
	// Fallback bucket names, used only with OnUnknownCourse == Fallback.
	FallbackMorning   string
	FallbackAfternoon string
}

func DefaultPolicy() Policy {
	return Policy{
		OnFailure:         Partial,
		OnUnknownCourse:   Reject,
		FallbackMorning:   "*unknown*",
		FallbackAfternoon: "*unknown*",
	}
}

// Writer is the part of the store an import writes to.
type Writer interface {
	ReplaceRoster(ctx context.Context, roster []models.Student) error
	ReplaceRegistry(ctx context.Context, courses []models.Course, fingerprint string, roster []models.Student) (int, error)
}

type Importer struct {
	store    Writer
	catalog  *registry.Catalog
	policy   Policy
	validate *validator.Validate
	logger   *slog.Logger

	// one import at a time, so a dynamic registry and its roster land together
	mu sync.Mutex
}

func NewImporter(st Writer, catalog *registry.Catalog, policy Policy, logger *slog.Logger) *Importer {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("field")
	})
	return &Importer{
		store:    st,
		catalog:  catalog,
		policy:   policy,
		validate: v,
		logger:   logger,
	}
}

type candidate struct {
	row       Row
	id        int64
	morning   string
	afternoon string
	fallback  bool
}

// Import validates every row of src and, when at least one row is accepted
// (and, under Abort, none rejected), replaces the roster. Row problems are
// reported in the returned report, not as an error.
func (im *Importer) Import(ctx context.Context, src RowSource) (models.ImportReport, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	report := models.ImportReport{
		BatchID:  uuid.NewString(),
		Rejected: []models.RowRejection{},
	}
	logger := im.logger.With("batch_id", report.BatchID)

	reg := im.catalog.Current()
	dynamic := im.catalog.Mode() == registry.Dynamic
	seen := map[int64]int{}
	var accepted []candidate

	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			im.record(ctx, "error")
			return report, fmt.Errorf("%w: %w", ErrUnreadableFile, err)
		}
		c, err := im.check(row, reg, dynamic, seen)
		if err != nil {
			report.Rejected = append(report.Rejected, rejection(row, err))
			if im.policy.OnFailure == Abort {
				break
			}
			continue
		}
		seen[c.id] = row.Line
		accepted = append(accepted, c)
	}
	report.RejectedCount = len(report.Rejected)
	rowsCount.Add(ctx, int64(report.RejectedCount), metric.WithAttributes(attribute.String("outcome", "rejected")))

	if len(accepted) == 0 || (im.policy.OnFailure == Abort && report.RejectedCount > 0) {
		logger.Warn("roster left unchanged", "candidates", len(accepted), "rejected", report.RejectedCount,
			"policy", im.policy.OnFailure)
		im.record(ctx, "unchanged")
		report.RegistryVersion = im.catalog.Info().Version
		return report, nil
	}

	if dynamic {
		b := registry.NewBuilder()
		for _, c := range accepted {
			b.Add(c.morning, models.MorningSlot)
			b.Add(c.afternoon, models.AfternoonSlot)
		}
		reg = b.BuildOn(im.catalog.Current())
	}

	students := make([]models.Student, 0, len(accepted))
	for i, c := range accepted {
		morningID, err := reg.Resolve(c.morning, models.MorningSlot)
		if err != nil {
			im.record(ctx, "error")
			return report, err
		}
		afternoonID, err := reg.Resolve(c.afternoon, models.AfternoonSlot)
		if err != nil {
			im.record(ctx, "error")
			return report, err
		}
		if c.fallback {
			report.FallbackRows++
		}
		students = append(students, models.Student{
			ID:                c.id,
			Position:          i,
			FirstName:         c.row.FirstName,
			LastName:          c.row.LastName,
			MorningCourseID:   morningID,
			AfternoonCourseID: afternoonID,
		})
	}

	if dynamic {
		version, err := im.store.ReplaceRegistry(ctx, reg.Courses(), reg.Fingerprint(), students)
		if err != nil {
			im.record(ctx, "error")
			return report, fmt.Errorf("error replacing courses and roster: %w", err)
		}
		if err := im.catalog.Reload(ctx); err != nil {
			return report, err
		}
		report.RegistryVersion = version
	} else {
		if err := im.store.ReplaceRoster(ctx, students); err != nil {
			im.record(ctx, "error")
			return report, fmt.Errorf("error replacing roster: %w", err)
		}
		report.RegistryVersion = im.catalog.Info().Version
	}

	report.Accepted = len(students)
	report.Replaced = true
	report.Courses = reg.Len()
	rowsCount.Add(ctx, int64(report.Accepted), metric.WithAttributes(attribute.String("outcome", "accepted")))
	im.record(ctx, "replaced")
	logger.Info("roster replaced", "accepted", report.Accepted, "rejected", report.RejectedCount,
		"fallback_rows", report.FallbackRows, "courses", report.Courses)
	return report, nil
}

func (im *Importer) record(ctx context.Context, result string) {
	importsCount.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// check applies the row rules in order: required fields, identifier, course
// membership, then duplicates within the file.
func (im *Importer) check(row Row, reg *registry.Registry, dynamic bool, seen map[int64]int) (candidate, error) {
	if err := im.validate.Struct(row); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return candidate{}, &MissingFieldError{Field: Field(verrs[0].Field())}
		}
		return candidate{}, err
	}

	id, err := NormalizeID(row.StudentID)
	if err != nil {
		return candidate{}, err
	}

	c := candidate{row: row, id: id, morning: row.MorningCourse, afternoon: row.AfternoonCourse}
	if !dynamic {
		var fb bool
		if c.morning, fb, err = im.course(reg, row.MorningCourse, models.MorningSlot); err != nil {
			return candidate{}, err
		}
		c.fallback = fb
		if c.afternoon, fb, err = im.course(reg, row.AfternoonCourse, models.AfternoonSlot); err != nil {
			return candidate{}, err
		}
		c.fallback = c.fallback || fb
	}

	if first, ok := seen[id]; ok {
		return candidate{}, &DuplicateStudentError{ID: id, FirstLine: first}
	}
	return c, nil
}

func (im *Importer) course(reg *registry.Registry, value string, slot models.Slot) (string, bool, error) {
	if reg.Known(value, slot) {
		return value, false, nil
	}
	if im.policy.OnUnknownCourse == Fallback {
		if slot == models.AfternoonSlot {
			return im.policy.FallbackAfternoon, true, nil
		}
		return im.policy.FallbackMorning, true, nil
	}
	return "", false, &InvalidCourseError{Slot: slot, Value: value}
}

// NormalizeID strips every non-digit and parses what is left.
func NormalizeID(raw string) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, &InvalidIdentifierError{Value: raw}
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, &InvalidIdentifierError{Value: raw}
	}
	return id, nil
}

func rejection(row Row, err error) models.RowRejection {
	code := "invalid_row"
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		code = coded.Code()
	}
	return models.RowRejection{
		Row:       row.Line,
		StudentID: row.StudentID,
		Code:      code,
		Message:   err.Error(),
	}
}
