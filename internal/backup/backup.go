// Package backup keeps rotating copies of taskman store files.
//
// A copy of the active store is taken before a command runs when the newest
// copy is older than the configured interval. Copies sit next to the store
// (or in backup.path) as <store>.bak.1, <store>.bak.2, ..., 1 being the most
// recent. Each named store rotates its own set.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/config"
	"github.com/natefinch/atomic"
)

// Suffix separates a store file name from the backup number.
const Suffix = ".bak."

// Manager handles store backup operations.
type Manager struct {
	dbPath    string
	backupDir string
	prefix    string
	cfg       config.BackupConfig
}

// NewManager creates a new backup manager for the store at dbPath.
func NewManager(dbPath string, cfg config.BackupConfig) *Manager {
	backupDir := cfg.Path
	if backupDir == "" {
		backupDir = filepath.Dir(dbPath)
	}

	return &Manager{
		dbPath:    dbPath,
		backupDir: backupDir,
		prefix:    filepath.Base(dbPath) + Suffix,
		cfg:       cfg,
	}
}

// BackupIfNeeded checks if a backup is needed and creates one if so.
// Returns the path to the new backup file if created, or empty string if not needed.
// Returns an error only for unexpected failures (not for "backup not needed").
func (m *Manager) BackupIfNeeded() (string, error) {
	if !m.cfg.Enabled {
		return "", nil
	}

	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", nil // Nothing to back up yet
	}

	needed, err := m.isBackupNeeded()
	if err != nil {
		return "", fmt.Errorf("checking if backup needed: %w", err)
	}
	if !needed {
		return "", nil
	}

	backupPath, err := m.createBackup()
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}
	return backupPath, nil
}

// isBackupNeeded returns true if a new backup should be created.
func (m *Manager) isBackupNeeded() (bool, error) {
	lastBackupTime, err := m.getLastBackupTime()
	if err != nil {
		return false, err
	}
	if lastBackupTime.IsZero() {
		return true, nil
	}

	threshold := time.Duration(m.cfg.IntervalHours) * time.Hour
	return time.Since(lastBackupTime) > threshold, nil
}

// getLastBackupTime returns the modification time of the most recent backup.
// Returns zero time if no backups exist.
func (m *Manager) getLastBackupTime() (time.Time, error) {
	backups, err := m.listBackups()
	if err != nil {
		return time.Time{}, err
	}
	if len(backups) == 0 {
		return time.Time{}, nil
	}

	info, err := os.Stat(backups[0].path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat backup file: %w", err)
	}
	return info.ModTime(), nil
}

type backupFile struct {
	path   string
	number int
}

// listBackups returns this store's backup files, newest first.
func (m *Manager) listBackups() ([]backupFile, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	var backups []backupFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, m.prefix) {
			continue
		}
		num, err := strconv.Atoi(strings.TrimPrefix(name, m.prefix))
		if err != nil || num < 1 {
			continue
		}
		backups = append(backups, backupFile{path: filepath.Join(m.backupDir, name), number: num})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].number < backups[j].number
	})
	return backups, nil
}

// createBackup rotates existing backups and copies the store to slot 1.
func (m *Manager) createBackup() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	if err := m.rotateBackups(); err != nil {
		return "", fmt.Errorf("rotating backups: %w", err)
	}

	backupPath := m.slot(1)
	if err := copyFile(m.dbPath, backupPath); err != nil {
		return "", fmt.Errorf("copying store: %w", err)
	}
	return backupPath, nil
}

func (m *Manager) slot(n int) string {
	return filepath.Join(m.backupDir, fmt.Sprintf("%s%d", m.prefix, n))
}

// rotateBackups shifts bak.N to bak.N+1, deleting anything past MaxCount.
func (m *Manager) rotateBackups() error {
	backups, err := m.listBackups()
	if err != nil {
		return err
	}

	// Oldest first so nothing is overwritten.
	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]
		next := b.number + 1
		if next > m.cfg.MaxCount {
			if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("deleting old backup %s: %w", b.path, err)
			}
			continue
		}
		if err := os.Rename(b.path, m.slot(next)); err != nil {
			return fmt.Errorf("renaming backup %s: %w", b.path, err)
		}
	}
	return nil
}

// copyFile copies src to dst atomically, keeping the source permissions.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if err := atomic.WriteFile(dst, srcFile); err != nil {
		return fmt.Errorf("writing destination: %w", err)
	}
	return os.Chmod(dst, srcInfo.Mode().Perm())
}

// ListBackups returns the paths to all existing backup files, newest first.
func (m *Manager) ListBackups() ([]string, error) {
	backups, err := m.listBackups()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(backups))
	for i, b := range backups {
		paths[i] = b.path
	}
	return paths, nil
}

// GetBackupDir returns the directory where backups are stored.
func (m *Manager) GetBackupDir() string {
	return m.backupDir
}
