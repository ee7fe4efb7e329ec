package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clearfolio/suitability/internal/database"
	"github.com/clearfolio/suitability/internal/events"
	"github.com/clearfolio/suitability/internal/version"
)

const (
	archivePrefix = "suitability-backup-"
	archiveStamp  = "2006-01-02-150405"

	// minBackupsToKeep backups always survive rotation regardless of age.
	minBackupsToKeep = 3
)

// BackupMetadata describes one backup archive.
type BackupMetadata struct {
	Timestamp      time.Time          `json:"timestamp"`
	ServiceVersion string             `json:"service_version"`
	Databases      []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes one database inside the archive.
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes a backup stored remotely.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
}

// BackupService snapshots the databases and ships the archive to S3.
// With a nil S3 client the archive stays in the local backups directory.
type BackupService struct {
	databases   map[string]*database.DB
	dataDir     string
	s3          *S3Client
	retainCount int
	bus         *events.Bus
	log         zerolog.Logger
}

// NewBackupService creates the backup service over the named databases.
func NewBackupService(databases map[string]*database.DB, dataDir string, s3 *S3Client, retainCount int, bus *events.Bus, log zerolog.Logger) *BackupService {
	if retainCount < minBackupsToKeep {
		retainCount = minBackupsToKeep
	}
	return &BackupService{
		databases:   databases,
		dataDir:     dataDir,
		s3:          s3,
		retainCount: retainCount,
		bus:         bus,
		log:         log.With().Str("component", "backup_service").Logger(),
	}
}

// Backup snapshots every database, archives them with metadata and checksums,
// uploads when S3 is configured, and prunes old remote archives.
func (s *BackupService) Backup(ctx context.Context) error {
	started := time.Now()
	s.log.Info().Msg("Starting backup")

	stagingDir := filepath.Join(s.dataDir, "backup-staging")
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp:      time.Now().UTC(),
		ServiceVersion: version.Version,
	}

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapshotPath := filepath.Join(stagingDir, name+".db")
		if err := s.snapshotDatabase(ctx, s.databases[name], snapshotPath); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}
		checksum, err := fileChecksum(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := archivePrefix + time.Now().Format(archiveStamp) + ".tar.gz"
	archivePath := filepath.Join(s.dataDir, "backups", archiveName)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}
	if err := createArchive(archivePath, stagingDir); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archiveInfo, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}

	uploaded := false
	if s.s3 != nil {
		archiveFile, err := os.Open(archivePath)
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		if err := s.s3.Upload(ctx, archiveName, archiveFile); err != nil {
			archiveFile.Close()
			return err
		}
		archiveFile.Close()
		uploaded = true

		if err := s.rotate(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Backup rotation failed")
		}
	}

	duration := time.Since(started)
	s.log.Info().
		Str("archive", archiveName).
		Int64("size_bytes", archiveInfo.Size()).
		Bool("uploaded", uploaded).
		Dur("duration_ms", duration).
		Msg("Backup completed")

	if s.bus != nil {
		s.bus.Publish(&events.BackupCompletedData{
			Archive:   archiveName,
			SizeBytes: archiveInfo.Size(),
			Uploaded:  uploaded,
			Duration:  duration.Seconds(),
		})
	}
	return nil
}

// snapshotDatabase takes a consistent copy via VACUUM INTO, which works while
// the database is in use.
func (s *BackupService) snapshotDatabase(ctx context.Context, db *database.DB, destPath string) error {
	escaped := strings.ReplaceAll(destPath, "'", "''")
	_, err := db.Conn().ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped))
	return err
}

// ListBackups lists remote backups, newest first.
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	if s.s3 == nil {
		return nil, nil
	}

	objects, err := s.s3.List(ctx, archivePrefix)
	if err != nil {
		return nil, err
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		key := *obj.Key
		stamp := strings.TrimSuffix(strings.TrimPrefix(key, archivePrefix), ".tar.gz")
		timestamp, err := time.Parse(archiveStamp, stamp)
		if err != nil {
			s.log.Warn().Str("key", key).Msg("Unrecognized backup key, skipping")
			continue
		}

		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}
		backups = append(backups, BackupInfo{Key: key, Timestamp: timestamp, SizeBytes: size})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Timestamp.After(backups[j].Timestamp) })
	return backups, nil
}

// rotate deletes remote backups beyond the retention count, keeping the
// newest ones.
func (s *BackupService) rotate(ctx context.Context) error {
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= s.retainCount {
		return nil
	}

	deleted := 0
	for _, backup := range backups[s.retainCount:] {
		if err := s.s3.Delete(ctx, backup.Key); err != nil {
			s.log.Error().Err(err).Str("key", backup.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	s.log.Info().Int("deleted", deleted).Int("retained", s.retainCount).Msg("Backup rotation completed")
	return nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(metadata)
}

// createArchive packs every file in sourceDir into a tar.gz at archivePath.
func createArchive(archivePath, sourceDir string) error {
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archiveFile.Close()

	gzipWriter := gzip.NewWriter(archiveFile)
	defer gzipWriter.Close()

	tarWriter := tar.NewWriter(gzipWriter)
	defer tarWriter.Close()

	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := addFileToArchive(tarWriter, filepath.Join(sourceDir, entry.Name()), entry.Name()); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", entry.Name(), err)
		}
	}
	return nil
}

func addFileToArchive(tarWriter *tar.Writer, filePath, nameInArchive string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tarWriter, file)
	return err
}
