package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/backup"
)

var (
	// ErrNoBackupPath is returned when no path was given and none is configured.
	ErrNoBackupPath = errors.New("no backup path given or configured")

	// ErrInvalidBackupName is returned for backup names that are not a plain
	// file name.
	ErrInvalidBackupName = errors.New("backup name must be a file name inside the backup directory")
)

// BackupPathFor resolves a caller-supplied backup file name against the
// directory of the configured backup path. An empty name selects the
// configured path itself. Absolute paths, separators and ".." are rejected.
func (m *Manager) BackupPathFor(name string) (string, error) {
	if m.cfg.BackupPath == "" {
		return "", ErrNoBackupPath
	}
	if name == "" {
		return m.cfg.BackupPath, nil
	}
	if name == "." || filepath.IsAbs(name) || !filepath.IsLocal(name) ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidBackupName, name)
	}
	return filepath.Join(filepath.Dir(m.cfg.BackupPath), name), nil
}

// ExportBackup writes every wallet and keystore entry to path, or to the
// configured backup path when path is empty. It returns the path written and
// the number of wallets in the document.
func (m *Manager) ExportBackup(path string) (string, int, error) {
	n, path, err := m.exportBackup(path)
	m.metrics.Backups.WithLabelValues("export", result(err)).Inc()
	return path, n, err
}

func (m *Manager) exportBackup(path string) (int, string, error) {
	f, err := m.backupFile(path)
	if err != nil {
		return 0, path, err
	}

	snap := m.registry.Snapshot()
	data, err := backup.Encode(snap, m.cipher.Params())
	if err != nil {
		return 0, f.Path(), err
	}

	m.backupMu.Lock()
	defer m.backupMu.Unlock()

	if err := f.Write(data); err != nil {
		return 0, f.Path(), err
	}

	m.log.Info("backup exported", zap.String("path", f.Path()), zap.Int("wallets", len(snap)))
	return len(snap), f.Path(), nil
}

// RestoreBackup replaces the whole registry with the contents of path, or
// of the configured backup path when path is empty. Either every wallet of
// the document becomes visible or, on any error, none does.
func (m *Manager) RestoreBackup(path string) (string, int, error) {
	n, path, err := m.restoreBackup(path)
	m.metrics.Backups.WithLabelValues("restore", result(err)).Inc()
	return path, n, err
}

func (m *Manager) restoreBackup(path string) (int, string, error) {
	f, err := m.backupFile(path)
	if err != nil {
		return 0, path, err
	}

	data, err := f.Read()
	if err != nil {
		return 0, f.Path(), fmt.Errorf("unable to read backup: %w", err)
	}

	doc, err := backup.Decode(data)
	if err != nil {
		return 0, f.Path(), err
	}
	if err := doc.RequireKDF(m.cipher.Params()); err != nil {
		return 0, f.Path(), err
	}

	snap := doc.Snapshot()
	if err := m.registry.Restore(snap); err != nil {
		return 0, f.Path(), fmt.Errorf("%w: %w", backup.ErrCorruptBackup, err)
	}

	m.limitersMu.Lock()
	clear(m.limiters)
	m.limitersMu.Unlock()
	m.metrics.Wallets.Set(float64(len(snap)))

	m.log.Info("backup restored", zap.String("path", f.Path()), zap.Int("wallets", len(snap)))
	return len(snap), f.Path(), nil
}

// LoadBackup restores the configured backup file if it exists. A missing
// file is not an error: the service starts empty.
func (m *Manager) LoadBackup() (int, error) {
	if m.cfg.BackupPath == "" {
		return 0, nil
	}
	if _, err := os.Stat(m.cfg.BackupPath); errors.Is(err, os.ErrNotExist) {
		m.log.Info("no backup file, starting empty", zap.String("path", m.cfg.BackupPath))
		return 0, nil
	}

	_, n, err := m.RestoreBackup("")
	return n, err
}

func (m *Manager) backupFile(path string) (*backup.File, error) {
	if path == "" {
		path = m.cfg.BackupPath
	}
	if path == "" {
		return nil, ErrNoBackupPath
	}
	return backup.NewFile(path, m.cfg.BackupArchive, m.log), nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
