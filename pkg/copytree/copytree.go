// Package copytree copies files and directory trees into a destination,
// merging into existing directories and overwriting same-named files.
package copytree

import (
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"

	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/ignore"
)

// Copy copies src (file or directory) to dst.
//
// For a directory source, the tree is merged into dst: existing directories
// are descended into and same-named files are overwritten, so a later copy
// wins over an earlier one. Entries matching the ignore set (relative to
// src) are skipped along with their subtrees.
//
// For a file source, dst is treated as a directory; it is created if needed
// and the file is copied into it under its own name.
func Copy(src, dst string, ignores *ignore.Set) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrNotFound, "copy source does not exist").
				WithDetail("path", src)
		}
		return errors.Wrap(err, errors.ErrInternal, "cannot stat copy source").
			WithDetail("path", src)
	}

	if !info.IsDir() {
		return copyFileInto(src, dst)
	}

	opts := cp.Options{
		OnDirExists: func(src, dest string) cp.DirExistsAction {
			return cp.Merge
		},
	}
	if !ignores.Empty() {
		opts.Skip = func(srcinfo os.FileInfo, srcPath, destPath string) (bool, error) {
			rel, relErr := filepath.Rel(src, srcPath)
			if relErr != nil || rel == "." {
				return false, nil
			}
			return ignores.Match(rel), nil
		}
	}

	if err := cp.Copy(src, dst, opts); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to copy tree").
			WithDetail("src", src).
			WithDetail("dst", dst)
	}
	return nil
}

func copyFileInto(src, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create destination directory").
			WithDetail("path", dstDir)
	}
	target := filepath.Join(dstDir, filepath.Base(src))
	if err := cp.Copy(src, target); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to copy file").
			WithDetail("src", src).
			WithDetail("dst", target)
	}
	return nil
}
