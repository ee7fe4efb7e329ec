package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearfolio/suitability/internal/database"
	"github.com/clearfolio/suitability/internal/events"
	suitabilitytesting "github.com/clearfolio/suitability/internal/testing"
)

func newBackupFixture(t *testing.T) (*BackupService, string, <-chan events.Event) {
	t.Helper()

	history, cleanupHistory := suitabilitytesting.NewTestDB(t, "history")
	t.Cleanup(cleanupHistory)
	audit, cleanupAudit := suitabilitytesting.NewTestDB(t, "audit")
	t.Cleanup(cleanupAudit)

	bus := events.NewBus(zerolog.Nop())
	t.Cleanup(bus.Close)
	ch, cancel := bus.Subscribe()
	t.Cleanup(cancel)

	dataDir := t.TempDir()
	service := NewBackupService(map[string]*database.DB{
		"history": history,
		"audit":   audit,
	}, dataDir, nil, 5, bus, zerolog.Nop())

	return service, dataDir, ch
}

// TestBackupCreatesLocalArchive runs a backup without S3 and verifies the
// archive contents: both snapshots plus a metadata file with checksums.
func TestBackupCreatesLocalArchive(t *testing.T) {
	service, dataDir, ch := newBackupFixture(t)

	require.NoError(t, service.Backup(context.Background()))

	archives, err := filepath.Glob(filepath.Join(dataDir, "backups", archivePrefix+"*.tar.gz"))
	require.NoError(t, err)
	require.Len(t, archives, 1)

	contents := readArchive(t, archives[0])
	require.Contains(t, contents, "history.db")
	require.Contains(t, contents, "audit.db")
	require.Contains(t, contents, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(contents["backup-metadata.json"], &metadata))
	assert.False(t, metadata.Timestamp.IsZero())
	require.Len(t, metadata.Databases, 2)

	// Databases are recorded in name order with real sizes and checksums.
	assert.Equal(t, "audit", metadata.Databases[0].Name)
	assert.Equal(t, "history", metadata.Databases[1].Name)
	for _, db := range metadata.Databases {
		assert.Greater(t, db.SizeBytes, int64(0))
		assert.True(t, strings.HasPrefix(db.Checksum, "sha256:"))
		assert.Len(t, contents[db.Filename], int(db.SizeBytes))
	}

	// The staging directory is gone once the archive exists.
	_, err = os.Stat(filepath.Join(dataDir, "backup-staging"))
	assert.True(t, os.IsNotExist(err))

	// Without S3 the event reports a local-only backup.
	require.Len(t, ch, 1)
	event := <-ch
	require.Equal(t, events.BackupCompleted, event.Type)
	data, ok := event.Data.(*events.BackupCompletedData)
	require.True(t, ok)
	assert.False(t, data.Uploaded)
	assert.Greater(t, data.SizeBytes, int64(0))
}

// TestListBackupsWithoutS3 is a no-op rather than an error.
func TestListBackupsWithoutS3(t *testing.T) {
	service, _, _ := newBackupFixture(t)

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	assert.Nil(t, backups)
}

// TestRetentionFloor verifies the retain count never drops below the safety
// minimum.
func TestRetentionFloor(t *testing.T) {
	service := NewBackupService(nil, t.TempDir(), nil, 1, nil, zerolog.Nop())
	assert.Equal(t, minBackupsToKeep, service.retainCount)
}

func readArchive(t *testing.T, path string) map[string][]byte {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	gz, err := gzip.NewReader(file)
	require.NoError(t, err)
	defer gz.Close()

	contents := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[header.Name] = data
	}
	return contents
}
