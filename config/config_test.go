package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance_app_backend/registry"
	"attendance_app_backend/roster"
)

var envKeys = []string{
	"ENVIRONMENT", "PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"SQLITE_PATH", "MONGO_URI", "MONGO_DB", "JWT_SECRET", "AUTH_DISABLED", "CATALOG_FILE",
	"COURSE_MODE", "RESEED_COURSES", "IMPORT_FAILURE_POLICY", "UNKNOWN_COURSE_POLICY",
	"MAX_UPLOAD_MB", "TELEMETRY_ENABLED",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "jwt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, registry.Fixed, cfg.CourseMode)
	assert.Equal(t, roster.Partial, cfg.ImportFailurePolicy)
	assert.Equal(t, roster.Reject, cfg.UnknownCoursePolicy)
	assert.Equal(t, int64(10), cfg.MaxUploadMB)
	assert.False(t, cfg.AuthDisabled)
	assert.False(t, cfg.IsProduction())

	dbc := cfg.Database()
	assert.Equal(t, "localhost", dbc.Host)
	assert.Equal(t, "secret", dbc.Password)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("COURSE_MODE", "Dynamic")
	t.Setenv("IMPORT_FAILURE_POLICY", "abort")
	t.Setenv("UNKNOWN_COURSE_POLICY", "fallback")
	t.Setenv("RESEED_COURSES", "1")
	t.Setenv("MAX_UPLOAD_MB", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, registry.Dynamic, cfg.CourseMode)
	assert.Equal(t, roster.Abort, cfg.ImportFailurePolicy)
	assert.Equal(t, roster.Fallback, cfg.UnknownCoursePolicy)
	assert.True(t, cfg.ReseedCourses)
	assert.Equal(t, int64(2), cfg.MaxUploadMB)
	assert.Equal(t, "/tmp/x.db", cfg.Database().Path)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"DB_DRIVER": "sqlite3"}},
		{"missing db password", map[string]string{"AUTH_DISABLED": "true"}},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql", "AUTH_DISABLED": "true"}},
		{"bad mode", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "true", "COURSE_MODE": "auto"}},
		{"bad policy", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "true", "IMPORT_FAILURE_POLICY": "skip"}},
		{"bad unknown policy", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "true", "UNKNOWN_COURSE_POLICY": "guess"}},
		{"bad bool", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "maybe"}},
		{"bad port", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "true", "DB_PORT": "x"}},
		{"bad upload size", map[string]string{"DB_DRIVER": "sqlite3", "AUTH_DISABLED": "true", "MAX_UPLOAD_MB": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, cat.Slot1, 15)
	assert.Len(t, cat.Slot2, 11)
	assert.Equal(t, "*לא ידוע1*", cat.Fallback.Slot1)

	reg := registry.New(cat.Lists(false).Slot1, cat.Lists(false).Slot2)
	assert.Equal(t, 26, reg.Len())
	id, err := reg.Resolve("דיבייט", 2)
	require.NoError(t, err)
	assert.Equal(t, 23, id, "same name in slot 2 gets its own id")

	m := cat.Mapping()
	assert.Contains(t, m[roster.FieldStudentID], "מספר תלמיד")
}

func TestCatalogFallbackLists(t *testing.T) {
	cat, err := ParseCatalog([]byte(`
slot1: [Math, Art]
slot2: [Music]
fallback:
  slot1: "*unknown*"
  slot2: Music
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"Math", "Art"}, cat.Lists(false).Slot1)
	lists := cat.Lists(true)
	assert.Equal(t, []string{"Math", "Art", "*unknown*"}, lists.Slot1)
	assert.Equal(t, []string{"Music"}, lists.Slot2, "already present")

	p := cat.Policy(&Config{ImportFailurePolicy: roster.Abort, UnknownCoursePolicy: roster.Fallback})
	assert.Equal(t, roster.Abort, p.OnFailure)
	assert.Equal(t, "*unknown*", p.FallbackMorning)
	assert.Equal(t, "Music", p.FallbackAfternoon)
}

func TestCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("slot1: [A]\nslot2: [B]\nfields:\n  first_name: [given name]\n"), 0o600))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"given name"}, cat.Mapping()[roster.FieldFirstName])

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("fields:\n  nickname: [nick]\n"))
	assert.Error(t, err)
	_, err = ParseCatalog([]byte("slot1: ['  ']\n"))
	assert.Error(t, err)
}
