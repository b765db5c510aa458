package filesystem_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/modmigrate/internal/filesystem"
)

func TestTreeCreate(t *testing.T) {
	fs := afero.NewMemMapFs()
	tree := &filesystem.Directory{
		Path: "db",
		Children: []filesystem.TreeNode{
			filesystem.Files("migration/auth/h2", map[string]string{
				"V1__init.sql": "CREATE TABLE users (id INT);",
			}),
			&filesystem.File{Path: "README", Contents: "scripts"},
		},
	}
	require.NoError(t, tree.Create(fs, "/resources"))

	contents, err := afero.ReadFile(fs, "/resources/db/migration/auth/h2/V1__init.sql")
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE users (id INT);", string(contents))

	ok, err := afero.Exists(fs, "/resources/db/README")
	require.NoError(t, err)
	assert.True(t, ok)
}
