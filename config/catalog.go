package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML file holding the curated course lists and the roster
// header aliases.
type Catalog struct {
	Slot1    []string `yaml:"slot1"`
	Slot2    []string `yaml:"slot2"`
	Fallback struct {
		Slot1 string `yaml:"slot1"`
		Slot2 string `yaml:"slot2"`
	} `yaml:"fallback"`
	Fields map[string][]string `yaml:"fields"`
}

// LoadCatalog reads path, or the built-in catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	for _, name := range append(append([]string{}, c.Slot1...), c.Slot2...) {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("catalog contains an empty course name")
		}
	}
	if _, err := roster.MappingFrom(c.Fields); err != nil {
		return nil, err
	}
	return &c, nil
}

// Lists returns the course lists to seed. With fallback set, the bucket
// names are appended to their slot when missing.
func (c *Catalog) Lists(fallback bool) registry.Lists {
	lists := registry.Lists{
		Slot1: append([]string{}, c.Slot1...),
		Slot2: append([]string{}, c.Slot2...),
	}
	if fallback {
		lists.Slot1 = appendMissing(lists.Slot1, c.Fallback.Slot1)
		lists.Slot2 = appendMissing(lists.Slot2, c.Fallback.Slot2)
	}
	return lists
}

func appendMissing(names []string, name string) []string {
	if registry.Normalize(name) == "" {
		return names
	}
	for _, n := range names {
		if registry.Normalize(n) == registry.Normalize(name) {
			return names
		}
	}
	return append(names, name)
}

func (c *Catalog) Mapping() roster.Mapping {
	// validated in ParseCatalog
	m, _ := roster.MappingFrom(c.Fields)
	return m
}

// Policy combines the configured import policies with the catalog's
// fallback bucket names.
func (c *Catalog) Policy(cfg *Config) roster.Policy {
	p := roster.DefaultPolicy()
	p.OnFailure = cfg.ImportFailurePolicy
	p.OnUnknownCourse = cfg.UnknownCoursePolicy
	if c.Fallback.Slot1 != "" {
		p.FallbackMorning = c.Fallback.Slot1
	}
	if c.Fallback.Slot2 != "" {
		p.FallbackAfternoon = c.Fallback.Slot2
	}
	return p
}
