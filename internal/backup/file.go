package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const (
	// tempSuffix names the staging file next to the main backup.
	tempSuffix = ".tmp"

	// ArchiveDirName is the directory, next to the backup file, that holds
	// the previous versions when archiving is enabled.
	ArchiveDirName = "backup-archives"

	filePermissions       = 0o600
	archiveDirPermissions = 0o700
)

// ErrNoBackupFile is returned when File was created without a path.
var ErrNoBackupFile = errors.New("backup file name not set")

// File is a backup document on disk. Writes are staged into a temporary file
// in the same directory, synced, and renamed over the main file, so readers
// only ever see a complete document.
type File struct {
	fileName     string
	tempFileName string
	archiveDir   string
	archive      bool
	log          *zap.Logger
}

// NewFile returns a File at fileName. With archive set, the previous document
// is copied into ArchiveDirName before every swap.
func NewFile(fileName string, archive bool, log *zap.Logger) *File {
	dir := filepath.Dir(fileName)

	return &File{
		fileName:     fileName,
		tempFileName: fileName + tempSuffix,
		archiveDir:   filepath.Join(dir, ArchiveDirName),
		archive:      archive,
		log:          log.Named("backup"),
	}
}

// Path returns the main file name.
func (f *File) Path() string {
	return f.fileName
}

// Write atomically replaces the backup file with data.
func (f *File) Write(data []byte) error {
	if f.fileName == "" {
		return ErrNoBackupFile
	}

	if err := os.MkdirAll(filepath.Dir(f.fileName), archiveDirPermissions); err != nil {
		return fmt.Errorf("unable to create backup directory: %w", err)
	}

	// A stale staging file means a previous write died half way.
	if _, err := os.Stat(f.tempFileName); err == nil {
		f.log.Info("removing stale temp backup", zap.String("path", f.tempFileName))
		if err := os.Remove(f.tempFileName); err != nil {
			return fmt.Errorf("unable to remove temp backup file: %w", err)
		}
	}

	tmp, err := os.OpenFile(f.tempFileName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("unable to create temp file: %w", err)
	}
	defer os.Remove(f.tempFileName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to write backup to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("unable to sync temp file: %w", err)
	}
	// Some platforms refuse to rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp file: %w", err)
	}

	if err := f.archiveCurrent(); err != nil {
		return fmt.Errorf("unable to archive old backup file: %w", err)
	}

	if err := os.Rename(f.tempFileName, f.fileName); err != nil {
		return fmt.Errorf("unable to swap backup file: %w", err)
	}
	f.log.Info("backup written", zap.String("path", f.fileName), zap.Int("bytes", len(data)))
	return nil
}

// Read returns the current contents of the backup file.
func (f *File) Read() ([]byte, error) {
	if f.fileName == "" {
		return nil, ErrNoBackupFile
	}
	return os.ReadFile(f.fileName)
}

// Exists reports whether the main backup file is present.
func (f *File) Exists() bool {
	_, err := os.Stat(f.fileName)
	return err == nil
}

func (f *File) archiveCurrent() error {
	if !f.archive {
		return nil
	}

	old, err := os.Open(f.fileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to open old backup file: %w", err)
	}
	defer old.Close()

	if err := os.MkdirAll(f.archiveDir, archiveDirPermissions); err != nil {
		return fmt.Errorf("unable to create archive directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s", filepath.Base(f.fileName), time.Now().UTC().Format("2006-01-02-15-04-05.000000000"))
	archivePath := filepath.Join(f.archiveDir, name)

	dst, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePermissions)
	if err != nil {
		return fmt.Errorf("unable to create archive file: %w", err)
	}
	defer func() {
		if err := dst.Close(); err != nil {
			f.log.Error("unable to close archive file", zap.Error(err))
		}
	}()

	if _, err := io.Copy(dst, old); err != nil {
		return fmt.Errorf("unable to copy to archive file: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("unable to sync archive file: %w", err)
	}

	f.log.Debug("archived previous backup", zap.String("path", archivePath))
	return nil
}
