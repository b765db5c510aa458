package location_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pgEdge/modmigrate/internal/location"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "file:/srv/migrations", location.Normalize("filesystem:/srv/migrations"))
	assert.Equal(t, "file:/srv/migrations", location.Normalize("file:/srv/migrations"))
	assert.Equal(t, "classpath:db/migration", location.Normalize("classpath:db/migration"))
}

func TestCheck(t *testing.T) {
	existing := map[string]bool{
		"classpath:db/migration/auth/h2": true,
		"file:/srv/migrations":           true,
	}
	var checked []string
	exists := func(loc string) bool {
		checked = append(checked, loc)
		return existing[loc]
	}

	t.Run("disabled", func(t *testing.T) {
		checked = nil
		assert.NoError(t, location.Check(nil, exists, false))
		assert.NoError(t, location.Check([]string{"classpath:missing"}, exists, false))
		assert.Empty(t, checked)
	})

	t.Run("not configured", func(t *testing.T) {
		assert.ErrorIs(t, location.Check(nil, exists, true), location.ErrLocationsNotConfigured)
		assert.ErrorIs(t, location.Check([]string{}, exists, true), location.ErrLocationsNotConfigured)
	})

	t.Run("any location exists", func(t *testing.T) {
		checked = nil
		err := location.Check([]string{"classpath:missing", "classpath:db/migration/auth/h2", "classpath:other"}, exists, true)
		assert.NoError(t, err)
		assert.Equal(t, []string{"classpath:missing", "classpath:db/migration/auth/h2"}, checked)
	})

	t.Run("normalized before testing", func(t *testing.T) {
		assert.NoError(t, location.Check([]string{"filesystem:/srv/migrations"}, exists, true))
	})

	t.Run("none exist", func(t *testing.T) {
		err := location.Check([]string{"classpath:a", "classpath:b"}, exists, true)
		assert.ErrorIs(t, err, location.ErrLocationNotFound)
		assert.ErrorContains(t, err, "classpath:a, classpath:b")
	})
}
