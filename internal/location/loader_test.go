package location_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/filesystem"
	"github.com/pgEdge/modmigrate/internal/location"
)

func testLoader(t *testing.T) *location.Loader {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, filesystem.Files("/resources/db/migration/auth/h2", map[string]string{
		"V1__init.sql":             "CREATE TABLE users (id INT);",
		"V2__add_email.sql":        "ALTER TABLE users ADD email VARCHAR(255);",
		"R__user_view.sql":         "CREATE OR REPLACE VIEW v AS SELECT 1;",
		"nested/V3__nested.sql":    "SELECT 1;",
		"notes.txt":                "not a migration",
		"V4_missing_separator.sql": "SELECT 1;",
	}).Create(fs, "/"))
	require.NoError(t, filesystem.Files("/srv/migrations", map[string]string{
		"V10__external.sql": "SELECT 1;",
	}).Create(fs, "/"))

	return location.NewLoader(fs, "/resources")
}

func TestLoaderResolve(t *testing.T) {
	loader := location.NewLoader(afero.NewMemMapFs(), "/resources")

	assert.Equal(t, "/resources/db/migration", loader.Resolve("classpath:db/migration"))
	assert.Equal(t, "/resources/db/migration", loader.Resolve("classpath:/db/migration"))
	assert.Equal(t, "/resources/db/migration", loader.Resolve("db/migration"))
	assert.Equal(t, "/srv/migrations", loader.Resolve("file:/srv/migrations/"))
	assert.Equal(t, "/srv/migrations", loader.Resolve("filesystem:/srv/migrations"))
}

func TestLoaderExists(t *testing.T) {
	loader := testLoader(t)

	assert.True(t, loader.Exists("classpath:db/migration/auth/h2"))
	assert.True(t, loader.Exists("file:/srv/migrations"))
	assert.False(t, loader.Exists("classpath:db/migration/billing/h2"))
	assert.False(t, loader.Exists("file:/srv/other"))
}

func TestScan(t *testing.T) {
	scanner := location.NewScanner(testLoader(t))

	t.Run("versioned", func(t *testing.T) {
		resources, err := scanner.Scan([]string{
			"classpath:db/migration/auth/h2",
			"classpath:db/migration/missing",
			"filesystem:/srv/migrations",
		}, location.Pattern{
			Prefix:    "V",
			Separator: "__",
			Suffixes:  []string{".sql"},
		})
		require.NoError(t, err)

		var names []string
		for _, r := range resources {
			names = append(names, r.Name)
		}
		assert.Equal(t, []string{"V1__init.sql", "V2__add_email.sql", "V3__nested.sql", "V10__external.sql"}, names)
		assert.Equal(t, "2", resources[1].Version)
		assert.Equal(t, "add email", resources[1].Description)
		assert.Equal(t, "/resources/db/migration/auth/h2/nested/V3__nested.sql", resources[2].Path)
		assert.Equal(t, "filesystem:/srv/migrations", resources[3].Location)
	})

	t.Run("repeatable", func(t *testing.T) {
		resources, err := scanner.Scan([]string{"classpath:db/migration/auth/h2"}, location.Pattern{
			Prefix:    "R",
			Separator: "__",
			Suffixes:  []string{".sql"},
		})
		require.NoError(t, err)
		require.Len(t, resources, 1)
		assert.Equal(t, "", resources[0].Version)
		assert.Equal(t, "user view", resources[0].Description)
	})
}

func TestPatternParse(t *testing.T) {
	pattern := location.Pattern{Prefix: "V", Separator: "__", Suffixes: []string{".sql", ".pg.sql"}}

	version, description, ok := pattern.Parse("V1_1__init_schema.pg.sql")
	assert.True(t, ok)
	assert.Equal(t, "1_1", version)
	assert.Equal(t, "init schema", description)

	for _, name := range []string{"R__view.sql", "V1__init.txt", "V1_init.sql", ".sql", "V"} {
		assert.False(t, pattern.Matches(name), name)
	}
}
