package backup

import (
	"archive/tar"
	"compress/gzip"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/sprout/internal/constants"
)

func setupTestDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sprout.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE entries (id TEXT PRIMARY KEY, lessons TEXT)`); err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO entries (id, lessons) VALUES ('1', 'a'), ('2', 'b')"); err != nil {
		t.Fatalf("failed to insert test data: %v", err)
	}
	return dbPath
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

func setupTestDataDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	files := map[string]string{
		"users.json":                  `{"version":1,"users":{}}`,
		"journals/alice/entries.json": `[]`,
		"journals/alice/metrics.json": `{"days_active":0}`,
		"journals/alice/.lock":        "123",
		"journals/alice/x.json.tmp":   "partial",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCreateBackup(t *testing.T) {
	dbPath := setupTestDB(t)

	mgr := NewManager(dbPath)
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if filepath.Dir(backupPath) != filepath.Join(filepath.Dir(dbPath), "backups") {
		t.Errorf("backup written to %s, want sibling backups dir", backupPath)
	}
	name := filepath.Base(backupPath)
	if !strings.HasPrefix(name, "sprout-") || !strings.HasSuffix(name, ".db") {
		t.Errorf("unexpected backup name %s", name)
	}
	if count := countRows(t, backupPath); count != 2 {
		t.Errorf("expected 2 rows in backup, got %d", count)
	}
}

func TestCreateBackupMissingSource(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.CreateBackup(); err == nil {
		t.Error("CreateBackup should fail when storage does not exist")
	}
}

func TestBackupRotation(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != constants.MaxBackups {
		t.Errorf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted newest first at %d", i)
		}
	}
}

func TestListBackupsIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	backups, err := mgr.ListBackups()
	if err != nil || len(backups) != 0 {
		t.Fatalf("expected no backups initially, got %v, %v", backups, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"notes.txt", "sprout-garbage.db", "sprout-20240101-1200.tar.gz"} {
		if err := os.WriteFile(filepath.Join(mgr.GetBackupDir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	backups, err = mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 {
		t.Errorf("expected 3 backups, got %d", len(backups))
	}
	for _, b := range backups {
		if b.Size == 0 || b.Timestamp.IsZero() {
			t.Errorf("incomplete backup info %+v", b)
		}
	}
}

func TestParseBackupName(t *testing.T) {
	tests := []struct {
		name        string
		wantOK      bool
		wantTime    string
		wantCounter int
	}{
		{"sprout-20240105-1030.db", true, "2024-01-05 10:30:00", 0},
		{"sprout-20240105-103045.db", true, "2024-01-05 10:30:45", 0},
		{"sprout-20240105-103045-12.db", true, "2024-01-05 10:30:45", 12},
		{"sprout-20240105.db", false, "", 0},
		{"notes-20240105-1030.db", false, "", 0},
	}
	for _, tt := range tests {
		got, counter, ok := parseBackupName(tt.name, ".db")
		if ok != tt.wantOK {
			t.Errorf("parseBackupName(%s) ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if got.Format("2006-01-02 15:04:05") != tt.wantTime || counter != tt.wantCounter {
			t.Errorf("parseBackupName(%s) = %v, %d", tt.name, got, counter)
		}
	}
}

func TestRestoreBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("INSERT INTO entries (id, lessons) VALUES ('3', 'c')"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	before, _ := mgr.ListBackups()
	safety, err := mgr.RestoreBackup(backupPath)
	if err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if count := countRows(t, dbPath); count != 2 {
		t.Errorf("expected 2 rows after restore, got %d", count)
	}

	after, _ := mgr.ListBackups()
	if len(after) != len(before)+1 {
		t.Errorf("restore should snapshot current storage first: %d -> %d backups", len(before), len(after))
	}
	if count := countRows(t, safety); count != 3 {
		t.Errorf("safety backup should hold pre-restore data, got %d rows", count)
	}
}

func TestVerifyBackup(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatal(err)
	}
	if err := mgr.verifyBackup(backupPath); err != nil {
		t.Errorf("verifyBackup failed for valid backup: %v", err)
	}

	invalidPath := filepath.Join(mgr.GetBackupDir(), "invalid.db")
	if err := os.WriteFile(invalidPath, []byte("not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.verifyBackup(invalidPath); err == nil {
		t.Error("verifyBackup should fail for invalid backup")
	}
	if _, err := mgr.RestoreBackup(invalidPath); err == nil {
		t.Error("RestoreBackup should refuse an invalid backup")
	}
}

func TestUniqueBackupFilenames(t *testing.T) {
	dbPath := setupTestDB(t)
	mgr := NewManager(dbPath)
	fixed := time.Date(2024, 1, 5, 10, 30, 0, 0, time.Local)
	mgr.now = func() time.Time { return fixed }

	paths := make(map[string]bool)
	for i := 0; i < 5; i++ {
		backupPath, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
		name := filepath.Base(backupPath)
		if paths[name] {
			t.Errorf("duplicate backup filename: %s", name)
		}
		paths[name] = true
	}

	backups, _ := mgr.ListBackups()
	if !strings.HasSuffix(backups[0].Path, "-3.db") {
		t.Errorf("newest backup should be the highest counter, got %s", backups[0].Path)
	}
}

func TestArchiveBackupAndRestore(t *testing.T) {
	dataDir := setupTestDataDir(t)
	mgr := NewDirManager(dataDir)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if !strings.HasSuffix(backupPath, ".tar.gz") {
		t.Errorf("archive backup name = %s", backupPath)
	}
	if strings.HasPrefix(backupPath, dataDir+string(filepath.Separator)) {
		t.Error("backups must not live inside the archived directory")
	}

	names := archiveNames(t, backupPath)
	for _, skipped := range []string{"journals/alice/.lock", "journals/alice/x.json.tmp"} {
		if names[skipped] {
			t.Errorf("archive should skip %s", skipped)
		}
	}
	if !names["journals/alice/entries.json"] {
		t.Errorf("archive is missing entries.json: %v", names)
	}

	entries := filepath.Join(dataDir, "journals", "alice", "entries.json")
	if err := os.WriteFile(entries, []byte(`[{"id":"new"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := mgr.RestoreBackup(backupPath); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	data, err := os.ReadFile(entries)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("entries after restore = %s, want []", data)
	}
	if _, err := os.Stat(dataDir + ".old"); !os.IsNotExist(err) {
		t.Error("previous data directory should be removed after restore")
	}
}

func TestVerifyArchiveRejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.tar.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, name := range []string{"users.json", "../escape.json"} {
		if err := tw.WriteHeader(&tar.Header{Name: name, Mode: 0600, Size: 2, Typeflag: tar.TypeReg}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	tw.Close()
	gz.Close()
	f.Close()

	dest := filepath.Join(t.TempDir(), "out")
	if err := extractArchive(path, dest); err == nil {
		t.Error("extractArchive should reject entries outside the destination")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dest), "escape.json")); !os.IsNotExist(err) {
		t.Error("traversal entry was written")
	}
}

func archiveNames(t *testing.T, path string) map[string]bool {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(gz)
	names := make(map[string]bool)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		names[hdr.Name] = true
	}
	return names
}
