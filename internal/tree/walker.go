// Package tree enumerates directory trees as relative paths.
//
// Both walk orders visit every directory and regular file under the
// root exactly once, identified by its path relative to the root. The
// root itself is not visited. Symbolic links are never followed;
// symlinks and other irregular entries (sockets, devices, pipes) are
// skipped entirely.
package tree

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// SkipDir, returned from a VisitFunc for a directory during a top-down
// walk, skips that directory's contents.
var SkipDir = fs.SkipDir

// VisitFunc is called once per visited entry. When a directory cannot
// be read, it is called with the directory's relative path and a
// non-nil err; returning nil skips that subtree and continues the
// walk, while returning an error aborts it.
type VisitFunc func(rel string, isDir bool, err error) error

// TopDown walks the tree rooted at root, visiting every directory
// before its children. A root that does not exist or cannot be read is
// an error returned directly, not reported through fn.
func TopDown(root string, fn VisitFunc) error {
	return walkTopDown(root, ".", fn)
}

func walkTopDown(root, rel string, fn VisitFunc) error {
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		if rel == "." {
			return err
		}
		return fn(rel, true, err)
	}

	for _, e := range entries {
		crel := childRel(rel, e.Name())
		switch {
		case e.IsDir():
			if err := fn(crel, true, nil); err != nil {
				if errors.Is(err, SkipDir) {
					continue
				}
				return err
			}
			if err := walkTopDown(root, crel, fn); err != nil {
				return err
			}
		case e.Type().IsRegular():
			if err := fn(crel, false, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// BottomUp walks the tree rooted at root, visiting every entry of a
// directory (and, recursively, everything beneath its subdirectories)
// before the directory itself. Needed by deletion logic so a directory
// emptied mid-walk is still seen after its former contents.
func BottomUp(root string, fn VisitFunc) error {
	return walkBottomUp(root, ".", fn)
}

func walkBottomUp(root, rel string, fn VisitFunc) error {
	entries, err := os.ReadDir(filepath.Join(root, rel))
	if err != nil {
		if rel == "." {
			return err
		}
		return fn(rel, true, err)
	}

	for _, e := range entries {
		crel := childRel(rel, e.Name())
		switch {
		case e.IsDir():
			if err := walkBottomUp(root, crel, fn); err != nil {
				return err
			}
		case e.Type().IsRegular():
			if err := fn(crel, false, nil); err != nil {
				return err
			}
		}
	}

	if rel == "." {
		return nil
	}
	return fn(rel, true, nil)
}

func childRel(rel, name string) string {
	if rel == "." {
		return name
	}
	return filepath.Join(rel, name)
}
