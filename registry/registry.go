// Package registry assigns stable integer ids to free-text course names. Each
// of the two daily slots is its own namespace: a name that appears in both
// slots yields two courses with two ids.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"attendance_app_backend/models"
)

type Mode string

const (
	// Fixed seeds the registry from curated lists and rejects anything else.
	Fixed Mode = "fixed"
	// Dynamic rebuilds the registry from the names found in each import.
	Dynamic Mode = "dynamic"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Fixed:
		return Fixed, nil
	case Dynamic:
		return Dynamic, nil
	}
	return "", fmt.Errorf("invalid course mode %q (want fixed or dynamic)", s)
}

type UnknownCourseError struct {
	Name string
	Slot models.Slot
}

func (e *UnknownCourseError) Error() string {
	return fmt.Sprintf("unknown %s course %q", e.Slot, e.Name)
}

func (e *UnknownCourseError) Code() string { return "unknown_course" }

// Normalize puts a course name in the form used for comparison: NFC, trimmed,
// inner whitespace collapsed. Case is kept.
func Normalize(name string) string {
	return strings.Join(strings.Fields(norm.NFC.String(name)), " ")
}

// Registry is immutable once built and safe for concurrent use.
type Registry struct {
	courses []models.Course
	byID    map[int]models.Course
	byName  map[models.Slot]map[string]int
	names   map[models.Slot][]string
}

func empty() *Registry {
	return &Registry{
		byID: map[int]models.Course{},
		byName: map[models.Slot]map[string]int{
			models.MorningSlot:   {},
			models.AfternoonSlot: {},
		},
		names: map[models.Slot][]string{},
	}
}

// New seeds a registry from two ordered name lists. Ids start at 1 and follow
// first-seen order over slot1 then slot2; repeats within a slot keep the first id.
func New(slot1, slot2 []string) *Registry {
	r := empty()
	next := 1
	for _, part := range []struct {
		slot  models.Slot
		names []string
	}{{models.MorningSlot, slot1}, {models.AfternoonSlot, slot2}} {
		for _, raw := range part.names {
			name := Normalize(raw)
			if name == "" {
				continue
			}
			if _, ok := r.byName[part.slot][name]; ok {
				continue
			}
			r.add(models.Course{ID: next, Name: name, Slot: part.slot})
			next++
		}
	}
	return r
}

// FromCourses rebuilds a registry from persisted courses without reassigning ids.
func FromCourses(courses []models.Course) (*Registry, error) {
	r := empty()
	for _, c := range courses {
		if !c.Slot.Valid() {
			return nil, fmt.Errorf("course %d has invalid slot %d", c.ID, c.Slot)
		}
		if _, ok := r.byID[c.ID]; ok {
			return nil, fmt.Errorf("course id %d appears twice", c.ID)
		}
		name := Normalize(c.Name)
		if _, ok := r.byName[c.Slot][name]; ok {
			return nil, fmt.Errorf("course %q appears twice in %s slot", name, c.Slot)
		}
		c.Name = name
		r.add(c)
	}
	return r, nil
}

func (r *Registry) add(c models.Course) {
	r.courses = append(r.courses, c)
	r.byID[c.ID] = c
	r.byName[c.Slot][c.Name] = c.ID
	r.names[c.Slot] = append(r.names[c.Slot], c.Name)
}

// Resolve returns the id of name within slot.
func (r *Registry) Resolve(name string, slot models.Slot) (int, error) {
	id, ok := r.byName[slot][Normalize(name)]
	if !ok {
		return 0, &UnknownCourseError{Name: name, Slot: slot}
	}
	return id, nil
}

func (r *Registry) Known(name string, slot models.Slot) bool {
	_, ok := r.byName[slot][Normalize(name)]
	return ok
}

// Names returns the names known for slot in id order.
func (r *Registry) Names(slot models.Slot) []string {
	return append([]string(nil), r.names[slot]...)
}

func (r *Registry) Courses() []models.Course {
	return append([]models.Course(nil), r.courses...)
}

func (r *Registry) BySlot(slot models.Slot) []models.Course {
	var out []models.Course
	for _, c := range r.courses {
		if c.Slot == slot {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Lookup(id int) (models.Course, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Name returns the course name for id, or "" when id is unknown.
func (r *Registry) Name(id int) string {
	return r.byID[id].Name
}

func (r *Registry) Len() int { return len(r.courses) }

// Fingerprint identifies the ordered slot lists the registry was built from.
func (r *Registry) Fingerprint() string {
	h := sha256.New()
	for _, slot := range []models.Slot{models.MorningSlot, models.AfternoonSlot} {
		fmt.Fprintf(h, "slot:%d\n", slot)
		for _, name := range r.names[slot] {
			h.Write([]byte(name))
			h.Write([]byte{'\n'})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Builder collects course names per slot in first-seen order, for registries
// built from imported rows.
type Builder struct {
	seen  map[models.Slot]map[string]bool
	lists map[models.Slot][]string
}

func NewBuilder() *Builder {
	return &Builder{
		seen: map[models.Slot]map[string]bool{
			models.MorningSlot:   {},
			models.AfternoonSlot: {},
		},
		lists: map[models.Slot][]string{},
	}
}

func (b *Builder) Add(name string, slot models.Slot) {
	name = Normalize(name)
	if name == "" || b.seen[slot][name] {
		return
	}
	b.seen[slot][name] = true
	b.lists[slot] = append(b.lists[slot], name)
}

func (b *Builder) Build() *Registry {
	return New(b.lists[models.MorningSlot], b.lists[models.AfternoonSlot])
}

// BuildOn extends base with the collected names. Courses already in base keep
// their ids, including ones no longer referenced, so recorded attendance never
// changes course. New names take ids after the current maximum, slot1 first.
func (b *Builder) BuildOn(base *Registry) *Registry {
	if base == nil || base.Len() == 0 {
		return b.Build()
	}
	r := empty()
	next := 1
	for _, c := range base.courses {
		r.add(c)
		if c.ID >= next {
			next = c.ID + 1
		}
	}
	for _, slot := range []models.Slot{models.MorningSlot, models.AfternoonSlot} {
		for _, name := range b.lists[slot] {
			if _, ok := r.byName[slot][name]; ok {
				continue
			}
			r.add(models.Course{ID: next, Name: name, Slot: slot})
			next++
		}
	}
	return r
}
