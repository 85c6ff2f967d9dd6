package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ArchiveManager handles moving fully-read input files into the processed
// and error areas shared across runs.
type ArchiveManager struct {
	ProcessedDir string
	ErrorDir     string
}

// NewArchiveManager creates an archive manager for the two destination areas.
func NewArchiveManager(processedDir, errorDir string) *ArchiveManager {
	return &ArchiveManager{
		ProcessedDir: processedDir,
		ErrorDir:     errorDir,
	}
}

// EnsureDirs creates both destination areas if they don't exist.
func (am *ArchiveManager) EnsureDirs() error {
	for _, dir := range []string{am.ProcessedDir, am.ErrorDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DestinationPath builds a collision-free path in destDir for filePath,
// suffixing the base name with a timestamp. If that name is somehow taken
// too, a numeric counter is appended.
func (am *ArchiveManager) DestinationPath(destDir, filePath string) string {
	name := filepath.Base(filePath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	dest := filepath.Join(destDir, fmt.Sprintf("%s_%s%s", stem, TimestampSuffix(time.Now()), ext))
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(destDir, fmt.Sprintf("%s_%s_%d%s", stem, TimestampSuffix(time.Now()), i, ext))
	}
}

// MoveFile moves src to dest. It tries an atomic rename first; if that fails
// (cross-device, for example) it falls back to copy, verify size, then delete
// the source, so the file is never lost mid-move.
func (am *ArchiveManager) MoveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	if err := copyFile(src, dest); err != nil {
		return fmt.Errorf("failed to copy file to destination: %w", err)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat source after copy: %w", err)
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		return fmt.Errorf("failed to stat destination after copy: %w", err)
	}
	if srcInfo.Size() != destInfo.Size() {
		return fmt.Errorf("destination size mismatch after copy: %d != %d", destInfo.Size(), srcInfo.Size())
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove original file: %w", err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
