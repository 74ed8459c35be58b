// Package backup snapshots the sqlite store before destructive operations.
package backup

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/medalert/internal/constants"
	"github.com/julianstephens/medalert/internal/logger"
)

const (
	// MaxSnapshots is how many snapshots are kept per store
	MaxSnapshots = 10
	DirName      = "backups"
	fileSuffix   = ".db"
	stampFormat  = "20060102-150405"
)

var nowFunc = time.Now

// Info describes one snapshot file.
type Info struct {
	Path      string
	Reason    string
	Timestamp time.Time
	Size      int64
}

type Manager struct {
	dbPath    string
	backupDir string
}

func NewManager(dbPath string) *Manager {
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), DirName),
	}
}

func (m *Manager) Dir() string {
	return m.backupDir
}

// Snapshot copies the database to medalert-<reason>-<stamp>.db and prunes
// old snapshots.
func (m *Manager) Snapshot(reason string) (string, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := fmt.Sprintf("%s-%s-%s", constants.AppName, reason, nowFunc().Format(stampFormat))
	dest := filepath.Join(m.backupDir, base+fileSuffix)
	for i := 1; fileExists(dest); i++ {
		dest = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, i, fileSuffix))
	}

	if err := vacuumInto(m.dbPath, dest); err != nil {
		return "", fmt.Errorf("failed to snapshot database: %w", err)
	}

	if err := m.prune(); err != nil {
		logger.Warn("Failed to prune old snapshots", "error", err)
	}
	return dest, nil
}

// List returns snapshots newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var out []Info
	for _, entry := range entries {
		info, ok := parseName(entry.Name())
		if entry.IsDir() || !ok {
			continue
		}
		info.Path = filepath.Join(m.backupDir, entry.Name())
		if st, err := entry.Info(); err == nil {
			info.Size = st.Size()
		}
		out = append(out, info)
	}

	slices.SortFunc(out, func(a, b Info) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(b.Path, a.Path)
	})
	return out, nil
}

// Restore replaces the database with the snapshot at path. The current
// database is snapshotted first.
func (m *Manager) Restore(path string) error {
	if err := verify(path); err != nil {
		return fmt.Errorf("snapshot is corrupted or invalid: %w", err)
	}
	if fileExists(m.dbPath) {
		if _, err := m.Snapshot("pre-restore"); err != nil {
			return err
		}
	}

	tmp := m.dbPath + ".restore.tmp"
	_ = os.Remove(tmp)
	if err := vacuumInto(path, tmp); err != nil {
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}
	// a leftover WAL would be replayed onto the restored file
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(m.dbPath + suffix)
	}
	if err := os.Rename(tmp, m.dbPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to restore database: %w", err)
	}
	return nil
}

func (m *Manager) prune() error {
	snapshots, err := m.List()
	if err != nil || len(snapshots) <= MaxSnapshots {
		return err
	}
	for _, s := range snapshots[MaxSnapshots:] {
		if err := os.Remove(s.Path); err != nil {
			return fmt.Errorf("failed to remove old snapshot %s: %w", s.Path, err)
		}
	}
	return nil
}

// parseName splits medalert-<reason>-<date>-<time>[-n].db.
func parseName(name string) (Info, bool) {
	prefix := constants.AppName + "-"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, fileSuffix) {
		return Info{}, false
	}
	parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(name, prefix), fileSuffix), "-")
	for i := len(parts) - 2; i >= 1; i-- {
		ts, err := time.ParseInLocation(stampFormat, parts[i]+"-"+parts[i+1], time.Local)
		if err == nil {
			return Info{Reason: strings.Join(parts[:i], "-"), Timestamp: ts}, true
		}
	}
	return Info{}, false
}

// vacuumInto writes a consistent copy of src to dest.
func vacuumInto(src, dest string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.Exec("VACUUM INTO ?", dest)
	return err
}

func verify(path string) error {
	if !fileExists(path) {
		return fmt.Errorf("file does not exist: %s", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()
	var count int
	return db.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&count)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
