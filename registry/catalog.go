package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"attendance_app_backend/models"
	"attendance_app_backend/store"
)

// Lists are the curated course names for each slot, in seeding order.
type Lists struct {
	Slot1 []string
	Slot2 []string
}

// Catalog holds the persisted registry. Handlers read the in-memory snapshot;
// it only changes after seeding or a dynamic import.
type Catalog struct {
	store  store.CourseStore
	mode   Mode
	lists  Lists
	logger *slog.Logger

	mu    sync.RWMutex
	reg   *Registry
	info  models.RegistryInfo
	drift bool
}

func NewCatalog(st store.CourseStore, mode Mode, lists Lists, logger *slog.Logger) *Catalog {
	return &Catalog{
		store:  st,
		mode:   mode,
		lists:  lists,
		logger: logger,
		reg:    empty(),
	}
}

// Ensure loads the persisted registry. In fixed mode an empty course table is
// seeded from the configured lists; reseed replaces it wholesale and clears
// the roster.
func (c *Catalog) Ensure(ctx context.Context, reseed bool) error {
	info, err := c.store.RegistryInfo(ctx)
	if err != nil {
		return fmt.Errorf("error reading registry info: %w", err)
	}
	courses, err := c.store.Courses(ctx)
	if err != nil {
		return fmt.Errorf("error reading courses: %w", err)
	}

	if c.mode == Fixed {
		want := New(c.lists.Slot1, c.lists.Slot2)
		if len(courses) == 0 || reseed {
			if want.Len() == 0 {
				return errors.New("fixed course mode needs at least one course per slot")
			}
			if reseed && len(courses) > 0 {
				c.logger.Warn("reseeding course registry, roster will be cleared",
					"previous_version", info.Version)
			}
			version, err := c.store.ReplaceRegistry(ctx, want.Courses(), want.Fingerprint(), nil)
			if err != nil {
				return fmt.Errorf("error seeding courses: %w", err)
			}
			c.logger.Info("course registry seeded", "version", version, "courses", want.Len())
			return c.Reload(ctx)
		}
		if info.Fingerprint != want.Fingerprint() {
			c.logger.Warn("configured course lists differ from the persisted registry; serving persisted ids",
				"version", info.Version)
		}
	}

	return c.install(courses, info)
}

// Reload re-reads the registry from the store.
func (c *Catalog) Reload(ctx context.Context) error {
	info, err := c.store.RegistryInfo(ctx)
	if err != nil {
		return fmt.Errorf("error reading registry info: %w", err)
	}
	courses, err := c.store.Courses(ctx)
	if err != nil {
		return fmt.Errorf("error reading courses: %w", err)
	}
	return c.install(courses, info)
}

func (c *Catalog) install(courses []models.Course, info models.RegistryInfo) error {
	reg, err := FromCourses(courses)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.reg = reg
	c.info = info
	if c.mode == Fixed {
		c.drift = info.Fingerprint != New(c.lists.Slot1, c.lists.Slot2).Fingerprint()
	}
	c.mu.Unlock()
	return nil
}

func (c *Catalog) Current() *Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reg
}

func (c *Catalog) Info() models.RegistryResponse {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.RegistryResponse{
		RegistryInfo: c.info,
		Mode:         string(c.mode),
		Courses:      c.reg.Len(),
		Drift:        c.drift,
	}
}

func (c *Catalog) Mode() Mode { return c.mode }
