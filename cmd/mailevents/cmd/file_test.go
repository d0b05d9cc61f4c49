package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/mailevents/internal/storage/sqlite"
)

func TestFileCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	dbPath := filepath.Join(dir, "events.db")
	t.Setenv("MAILEVENTS_STORE_DSN", "sqlite:"+dbPath)
	t.Setenv("MAILEVENTS_LOG_LEVEL", "error")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write([]byte(
		`{"campaign_id":"42","event":"open","email":"a@b.com","sg_message_id":"mid1.x","sg_event_id":"ev1","timestamp":1700000000}` + "\n" +
			`{"campaign_id":"42","event":"open","email":"a@b.com","sg_message_id":"mid1.x","sg_event_id":"ev1","timestamp":1700000000}` + "\n" +
			`{"campaign_id":"42","event":"bounce","email":"c@d.com","sg_message_id":"mid2","sg_event_id":"ev2","timestamp":1700000100,"reason":"550"}` + "\n" +
			`{"event":"open","email":"a@b.com","sg_message_id":"mid3","sg_event_id":"ev3","timestamp":1700000000}` + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	gz := filepath.Join(dir, "webhook_data.gz")
	require.NoError(t, os.WriteFile(gz, buf.Bytes(), 0o600))

	root := NewRootCmd()
	root.SetArgs([]string{"file", gz})
	require.NoError(t, root.Execute())

	db, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.SQL.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM email_events").Scan(&n))
	assert.Equal(t, 2, n)

	var details string
	require.NoError(t, db.SQL.QueryRow("SELECT details FROM email_events WHERE event_id = 'ev2'").Scan(&details))
	assert.Equal(t, "event=bounce type= reason=550 response=", details)
}

func TestFileCommand_MissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MAILEVENTS_STORE_DSN", "sqlite:"+filepath.Join(dir, "events.db"))
	t.Setenv("MAILEVENTS_LOG_LEVEL", "error")

	root := NewRootCmd()
	root.SetArgs([]string{"file", filepath.Join(dir, "absent.gz")})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
