package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestVersion(t *testing.T) {
	version, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestMigrationFilesArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "files")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	assert.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestInitialSchemaTables(t *testing.T) {
	data, err := fs.ReadFile(migrationFiles, "files/000001_init.up.sql")
	require.NoError(t, err)

	schema := string(data)
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS photo_accounts")
	assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS photos")
	assert.Contains(t, schema, "CHECK (used_bytes >= 0)")
}
