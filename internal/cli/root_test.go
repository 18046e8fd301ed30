package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divakaivan/my-reddit-server/internal/repository"
	"github.com/divakaivan/my-reddit-server/internal/repository/sqlite"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "feedctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"migrate", "seed", "audit"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestAuditFlags(t *testing.T) {
	audit, _, err := NewRootCommand().Find([]string{"audit"})
	require.NoError(t, err)
	fix := audit.Flags().Lookup("fix")
	require.NotNil(t, fix)
	assert.Equal(t, "false", fix.DefValue)
}

// useSQLite points the command environment at a fresh database file.
func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedctl.db")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestMigrateAndSeed(t *testing.T) {
	path := useSQLite(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")

	out, err = run(t, "seed", "--limit", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 posts")

	out, err = run(t, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	defer store.Close()
	posts, err := store.ListFeed(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Len(t, posts, 3)
}

func TestAuditReportsAndFixesDrift(t *testing.T) {
	path := useSQLite(t)
	_, err := run(t, "seed", "--limit", "1")
	require.NoError(t, err)

	out, err := run(t, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "all scores match")

	store, err := sqlite.Open(path)
	require.NoError(t, err)
	posts, err := store.ListFeed(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NoError(t, store.InTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.SetScore(ctx, posts[0].ID, 7)
	}))
	require.NoError(t, store.Close())

	out, err = run(t, "audit")
	require.Error(t, err)
	assert.Contains(t, out, "ledger sum 0")

	out, err = run(t, "audit", "--fix")
	require.NoError(t, err)
	assert.Contains(t, out, "reconciled 1 post(s)")

	_, err = run(t, "audit")
	assert.NoError(t, err)
}
