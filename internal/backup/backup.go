package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/logger"
)

// Format is the kind of snapshot a Manager takes
type Format int

const (
	// FormatSQLite snapshots a single database file with VACUUM INTO
	FormatSQLite Format = iota
	// FormatArchive snapshots a JSON data directory as a gzip'd tarball
	FormatArchive
)

// BackupInfo contains information about a backup file
type BackupInfo struct {
	Path      string
	Timestamp time.Time
	Size      int64

	counter int
}

// Manager handles backup operations. Backups live in a "backups" directory
// next to the source, so an archived data directory never contains its own
// backups.
type Manager struct {
	source    string
	format    Format
	backupDir string
	now       func() time.Time
}

// NewManager creates a backup manager for a SQLite database file
func NewManager(dbPath string) *Manager {
	return newManager(dbPath, FormatSQLite)
}

// NewDirManager creates a backup manager for a JSON data directory
func NewDirManager(dataDir string) *Manager {
	return newManager(filepath.Clean(dataDir), FormatArchive)
}

func newManager(source string, format Format) *Manager {
	return &Manager{
		source:    source,
		format:    format,
		backupDir: filepath.Join(filepath.Dir(source), constants.BackupDirName),
		now:       time.Now,
	}
}

// GetBackupDir returns the backup directory path
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}

func (m *Manager) suffix() string {
	if m.format == FormatArchive {
		return constants.BackupArchiveSuffix
	}
	return constants.BackupFileSuffix
}

func (m *Manager) ensureBackupDir() error {
	return os.MkdirAll(m.backupDir, 0700)
}

// CreateBackup snapshots the source and rotates old backups
func (m *Manager) CreateBackup() (string, error) {
	return m.createBackup(false)
}

// createBackup snapshots the source. skipRotation is set for the safety
// snapshot taken right before a restore.
func (m *Manager) createBackup(skipRotation bool) (string, error) {
	if err := m.ensureBackupDir(); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	if _, err := os.Stat(m.source); os.IsNotExist(err) {
		return "", fmt.Errorf("storage does not exist: %s", m.source)
	}

	backupPath, err := m.nextBackupPath()
	if err != nil {
		return "", err
	}

	switch m.format {
	case FormatArchive:
		err = archiveDir(m.source, backupPath)
	default:
		err = m.backupDatabase(backupPath)
	}
	if err != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("failed to back up storage: %w", err)
	}

	if !skipRotation {
		if err := m.rotateBackups(); err != nil {
			logger.Warn("Failed to rotate old backups", "error", err)
		}
	}

	logger.Info("Backup created", "path", backupPath)
	return backupPath, nil
}

// nextBackupPath picks a timestamped name, falling back to seconds and
// then a counter when backups are taken in quick succession.
func (m *Manager) nextBackupPath() (string, error) {
	now := m.now()
	name := func(ts string, counter int) string {
		if counter > 0 {
			return filepath.Join(m.backupDir, fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, ts, counter, m.suffix()))
		}
		return filepath.Join(m.backupDir, constants.BackupFilePrefix+ts+m.suffix())
	}
	exists := func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	}

	if p := name(now.Format("20060102-1504"), 0); !exists(p) {
		return p, nil
	}
	ts := now.Format("20060102-150405")
	for counter := 0; counter <= 100; counter++ {
		if p := name(ts, counter); !exists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("failed to generate unique backup filename")
}

// backupDatabase snapshots the database with VACUUM INTO, falling back to a
// plain copy when that is unavailable.
func (m *Manager) backupDatabase(destPath string) error {
	srcDB, err := sql.Open("sqlite", m.source+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer srcDB.Close()

	var count int
	if err := srcDB.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count); err != nil {
		return fmt.Errorf("source database appears to be corrupted: %w", err)
	}

	if _, err := srcDB.Exec("VACUUM INTO ?", destPath); err != nil {
		srcDB.Close()
		return copyFile(m.source, destPath)
	}
	return nil
}

// ListBackups returns all backups, newest first
func (m *Manager) ListBackups() ([]BackupInfo, error) {
	if _, err := os.Stat(m.backupDir); os.IsNotExist(err) {
		return []BackupInfo{}, nil
	}

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		timestamp, counter, ok := parseBackupName(name, m.suffix())
		if !ok {
			continue
		}

		path := filepath.Join(m.backupDir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			Path:      path,
			Timestamp: timestamp,
			Size:      info.Size(),
			counter:   counter,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].counter > backups[j].counter
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})

	return backups, nil
}

// parseBackupName extracts the timestamp and counter from
// sprout-YYYYMMDD-HHMM[SS][-N]<suffix>
func parseBackupName(name, suffix string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, suffix) {
		return time.Time{}, 0, false
	}
	ts := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), suffix)

	// A trailing counter is never 4 or 6 digits long
	counter := 0
	parts := strings.Split(ts, "-")
	if len(parts) > 2 {
		last := parts[len(parts)-1]
		if len(last) != 4 && len(last) != 6 && isDigits(last) {
			counter, _ = strconv.Atoi(last)
			ts = strings.Join(parts[:len(parts)-1], "-")
		}
	}

	for _, layout := range []string{"20060102-1504", "20060102-150405"} {
		if t, err := time.ParseInLocation(layout, ts, time.Local); err == nil {
			return t, counter, true
		}
	}
	return time.Time{}, 0, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// rotateBackups removes backups beyond the retention limit
func (m *Manager) rotateBackups() error {
	backups, err := m.ListBackups()
	if err != nil {
		return err
	}

	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// RestoreBackup replaces the current storage with the given backup. The
// current storage is snapshotted first and the swap is a rename.
func (m *Manager) RestoreBackup(backupPath string) (string, error) {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	if err := m.verifyBackup(backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var safety string
	if _, err := os.Stat(m.source); err == nil {
		safety, err = m.createBackup(true)
		if err != nil {
			return "", fmt.Errorf("failed to back up current storage before restore: %w", err)
		}
	}

	var err error
	if m.format == FormatArchive {
		err = m.restoreArchive(backupPath)
	} else {
		err = m.restoreDatabase(backupPath)
	}
	if err != nil {
		return safety, err
	}

	logger.Info("Backup restored", "path", backupPath)
	return safety, nil
}

func (m *Manager) restoreDatabase(backupPath string) error {
	tempPath := m.source + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return fmt.Errorf("failed to copy backup file: %w", err)
	}

	if err := os.Rename(tempPath, m.source); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary file", "path", tempPath, "error", removeErr)
		}
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

func (m *Manager) restoreArchive(backupPath string) error {
	tempDir := m.source + ".restore.tmp"
	_ = os.RemoveAll(tempDir)
	if err := extractArchive(backupPath, tempDir); err != nil {
		_ = os.RemoveAll(tempDir)
		return fmt.Errorf("failed to extract backup: %w", err)
	}

	oldDir := m.source + ".old"
	_ = os.RemoveAll(oldDir)
	if _, err := os.Stat(m.source); err == nil {
		if err := os.Rename(m.source, oldDir); err != nil {
			_ = os.RemoveAll(tempDir)
			return fmt.Errorf("failed to move current data aside: %w", err)
		}
	}
	if err := os.Rename(tempDir, m.source); err != nil {
		// Put the previous data back
		_ = os.Rename(oldDir, m.source)
		_ = os.RemoveAll(tempDir)
		return fmt.Errorf("failed to restore data directory: %w", err)
	}
	if err := os.RemoveAll(oldDir); err != nil {
		logger.Warn("Failed to remove previous data directory", "path", oldDir, "error", err)
	}
	return nil
}

// verifyBackup checks that a backup can be opened in its format
func (m *Manager) verifyBackup(path string) error {
	if m.format == FormatArchive {
		return verifyArchive(path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
