package artifact

import (
	"os"
	"path/filepath"

	apperr "github.com/GriffinCanCode/recap/internal/errors"
)

// WriteText writes content to path atomically: readers see either the old
// file or the complete new one.
func WriteText(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "create session dir").WithMetadata("path", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "create temp file").WithMetadata("path", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(err, apperr.PersistFailed, "write").WithMetadata("path", path)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return apperr.Wrap(err, apperr.PersistFailed, "sync").WithMetadata("path", path)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "close").WithMetadata("path", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "chmod").WithMetadata("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return apperr.Wrap(err, apperr.PersistFailed, "rename").WithMetadata("path", path)
	}
	return nil
}
