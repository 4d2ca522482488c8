package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Disposition is what happens to a source file once its outcome is committed.
type Disposition string

const (
	DispositionKeep   Disposition = "keep"
	DispositionDelete Disposition = "delete"
	DispositionMove   Disposition = "move"
)

// DispositionFrom resolves the delete/move flags of the configuration.
func DispositionFrom(deleteAfter, moveToBackup bool) (Disposition, error) {
	switch {
	case deleteAfter && moveToBackup:
		return "", errors.New("delete and move to backup are mutually exclusive")
	case deleteAfter:
		return DispositionDelete, nil
	case moveToBackup:
		return DispositionMove, nil
	default:
		return DispositionKeep, nil
	}
}

// backupPath returns a destination inside dir that does not exist yet. A name that
// is already taken gets a _YYYYmmdd_HHMMSS suffix before its extension.
func backupPath(dir, name string, now time.Time) string {
	dest := filepath.Join(dir, name)
	if !exists(dest) {
		return dest
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	base := stem + "_" + now.Format("20060102_150405")
	dest = filepath.Join(dir, base+ext)
	for i := 1; exists(dest); i++ {
		dest = filepath.Join(dir, base+"_"+strconv.Itoa(i)+ext)
	}
	return dest
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// moveFile renames src to dest, copying and removing when the rename crosses devices.
func moveFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	if err := os.Rename(src, dest); err == nil {
		return nil
	}

	if err := copyFile(src, dest); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove %s after copy: %w", src, err)
	}
	return nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
