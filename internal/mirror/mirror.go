// Package mirror implements one-way reconciliation of a replica
// directory tree against a source tree, and the interval loop that
// drives it.
package mirror

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mkessler/treesyncd/internal/fingerprint"
	"github.com/mkessler/treesyncd/internal/tree"
)

// Reconciler mirrors the source root into the replica root. It holds
// no state between cycles; every Run is a complete, fresh
// reconciliation.
type Reconciler struct {
	source  string
	replica string
	logger  *slog.Logger

	// digest is injectable for tests; fingerprint.File in production.
	digest func(path string) (string, error)
}

// NewReconciler creates a reconciler for the given roots. Both must be
// existing directories; that precondition is enforced by config
// validation before any cycle runs.
func NewReconciler(source, replica string, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		source:  source,
		replica: replica,
		logger:  logger,
		digest:  fingerprint.File,
	}
}

// Run performs one reconciliation cycle: directory creation, file
// copy/update, then deletion of orphans. Per-item failures are
// recorded and logged but never abort a pass; the returned error is
// reserved for a source or replica root that cannot be walked at all.
// A cycle always runs to completion once started.
func (r *Reconciler) Run() (*Result, error) {
	res := &Result{}

	if err := r.createDirs(res); err != nil {
		return res, fmt.Errorf("directory creation pass: %w", err)
	}

	snapshot, err := r.copyFiles(res)
	if err != nil {
		return res, fmt.Errorf("file copy pass: %w", err)
	}

	if err := r.deleteOrphans(snapshot, res); err != nil {
		return res, fmt.Errorf("deletion pass: %w", err)
	}

	return res, nil
}

// createDirs walks the source top-down and creates every directory
// missing from the replica. A replica file occupying a source
// directory path is removed first so the directory can be created in
// the same cycle.
func (r *Reconciler) createDirs(res *Result) error {
	return tree.TopDown(r.source, func(rel string, isDir bool, err error) error {
		if err != nil {
			r.fail(res, OpCreateDir, rel, err)
			return nil
		}
		if !isDir {
			return nil
		}

		dst := filepath.Join(r.replica, rel)
		info, statErr := os.Lstat(dst)
		switch {
		case statErr == nil && info.IsDir():
			// Already mirrored.
			return nil
		case statErr == nil:
			// A file sits where the source has a directory; replace it.
			if err := os.Remove(dst); err != nil {
				r.fail(res, OpDeleteFile, rel, err)
				return nil
			}
			r.act(res, OpDeleteFile, rel)
		case !errors.Is(statErr, fs.ErrNotExist):
			r.fail(res, OpCreateDir, rel, statErr)
			return nil
		}

		if err := os.MkdirAll(dst, 0o755); err != nil {
			r.fail(res, OpCreateDir, rel, err)
			return nil
		}
		r.act(res, OpCreateDir, rel)
		return nil
	})
}

// copyFiles walks the source top-down, copying every file whose
// replica counterpart is missing or differs by digest. It returns the
// snapshot of source file paths that the deletion pass keys off.
func (r *Reconciler) copyFiles(res *Result) (map[string]struct{}, error) {
	snapshot := make(map[string]struct{})

	err := tree.TopDown(r.source, func(rel string, isDir bool, err error) error {
		if err != nil {
			r.fail(res, OpCopyFile, rel, err)
			return nil
		}
		if isDir {
			return nil
		}
		snapshot[rel] = struct{}{}

		src := filepath.Join(r.source, rel)
		dst := filepath.Join(r.replica, rel)

		// A directory sits where the source has a file; replace it.
		if info, statErr := os.Lstat(dst); statErr == nil && info.IsDir() {
			if err := os.RemoveAll(dst); err != nil {
				r.fail(res, OpDeleteDir, rel, err)
				return nil
			}
			r.act(res, OpDeleteDir, rel)
		}

		same, err := r.upToDate(src, dst)
		if err != nil {
			r.fail(res, OpCopyFile, rel, err)
			return nil
		}
		if same {
			return nil
		}

		if err := copyFile(src, dst); err != nil {
			r.fail(res, OpCopyFile, rel, err)
			return nil
		}
		r.act(res, OpCopyFile, rel)
		return nil
	})
	return snapshot, err
}

// upToDate reports whether the replica file at dst already matches the
// source content by digest. A missing or unreadable replica file
// counts as out of date; only a source-side read failure is an error,
// since a copy could not succeed either.
func (r *Reconciler) upToDate(src, dst string) (bool, error) {
	if _, err := os.Lstat(dst); err != nil {
		// Missing or unstattable replica file: copy.
		return false, nil
	}

	srcDigest, err := r.digest(src)
	if err != nil {
		return false, err
	}

	dstDigest, err := r.digest(dst)
	if err != nil {
		return false, nil
	}

	return srcDigest == dstDigest, nil
}

// deleteOrphans walks the replica bottom-up, removing files absent
// from the source snapshot and directories with no corresponding
// source directory. Bottom-up order guarantees a directory's former
// contents are evaluated before the directory itself.
func (r *Reconciler) deleteOrphans(snapshot map[string]struct{}, res *Result) error {
	return tree.BottomUp(r.replica, func(rel string, isDir bool, err error) error {
		if err != nil {
			r.fail(res, OpDeleteDir, rel, err)
			return nil
		}

		dst := filepath.Join(r.replica, rel)

		if !isDir {
			if _, ok := snapshot[rel]; ok {
				return nil
			}
			if err := os.Remove(dst); err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					r.fail(res, OpDeleteFile, rel, err)
				}
				return nil
			}
			r.act(res, OpDeleteFile, rel)
			return nil
		}

		srcInfo, statErr := os.Lstat(filepath.Join(r.source, rel))
		switch {
		case statErr == nil && srcInfo.IsDir():
			return nil
		case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
			r.fail(res, OpDeleteDir, rel, statErr)
			return nil
		}

		if err := os.RemoveAll(dst); err != nil {
			r.fail(res, OpDeleteDir, rel, err)
			return nil
		}
		r.act(res, OpDeleteDir, rel)
		return nil
	})
}

func (r *Reconciler) act(res *Result, op Op, rel string) {
	res.Actions = append(res.Actions, Action{Op: op, Path: rel})
	switch op {
	case OpCreateDir:
		r.logger.Info("creating directory", "path", rel)
	case OpCopyFile:
		r.logger.Info("copying file", "path", rel)
	case OpDeleteFile:
		r.logger.Info("deleting file", "path", rel)
	case OpDeleteDir:
		r.logger.Info("deleting directory", "path", rel)
	}
}

func (r *Reconciler) fail(res *Result, op Op, rel string, err error) {
	res.Failures = append(res.Failures, Failure{Op: op, Path: rel, Err: err})
	r.logger.Error("operation failed", "op", string(op), "path", rel, "error", err)
}

// copyFile copies src over dst with a temp file and atomic rename, so
// a failed copy never leaves a truncated replica file. Parent
// directories are created defensively in case the source grew a new
// directory after the creation pass walked it.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".treesyncd-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	srcInfo, err := srcFile.Stat()
	if err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, dst)
}
