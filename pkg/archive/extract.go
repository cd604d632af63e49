// Package archive extracts subtrees out of downloaded dependency archives.
// Supported formats: .zip and .whl (zip container), .tar.gz and .tgz.
package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/relpack/pkg/copytree"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/ignore"
	"github.com/arthur-debert/relpack/pkg/logging"
)

// Extract unpacks archivePath into a scratch directory, locates pathInArchive
// inside it ("." for the archive root) and merges that subtree into destDir,
// skipping entries matched by ignores. The scratch directory is removed on
// every exit path.
//
// Tar-gzip archives get one extra normalization step: every top-level
// extracted directory whose name contains a hyphen is renamed to the part
// before the first hyphen, collapsing the "name-version/" sdist layout to
// plain "name/". Zip archives are left as-is.
func Extract(archivePath, destDir, pathInArchive string, ignores *ignore.Set) error {
	logger := logging.GetLogger("archive")
	logger.Debug().Str("archive", archivePath).Str("dest", destDir).Msg("Extracting archive")

	scratch, err := os.MkdirTemp("", "relpack-archive-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create scratch directory")
	}
	defer os.RemoveAll(scratch)

	name := filepath.Base(archivePath)
	switch {
	case strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, ".whl"):
		if err := extractZip(archivePath, scratch); err != nil {
			return err
		}
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		if err := extractTarGz(archivePath, scratch); err != nil {
			return err
		}
		if err := normalizeSdistDirs(scratch); err != nil {
			return err
		}
	default:
		return errors.Newf(errors.ErrUnsupportedFormat, "unsupported archive format: %s", name)
	}

	if pathInArchive == "" {
		pathInArchive = "."
	}
	srcDir := filepath.Join(scratch, filepath.FromSlash(pathInArchive))
	if _, err := os.Stat(srcDir); err != nil {
		return errors.Newf(errors.ErrNotFound, "path %q not found in archive %q", pathInArchive, name)
	}

	return copytree.Copy(srcDir, destDir, ignores)
}

// normalizeSdistDirs renames top-level "pkg-1.2.3" directories to "pkg".
func normalizeSdistDirs(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to list extracted entries")
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.Contains(entry.Name(), "-") {
			continue
		}
		short := strings.SplitN(entry.Name(), "-", 2)[0]
		if err := os.Rename(filepath.Join(dir, entry.Name()), filepath.Join(dir, short)); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to normalize extracted directory").
				WithDetail("entry", entry.Name())
		}
	}
	return nil
}

func extractZip(archivePath, dest string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to open zip archive %s", archivePath)
	}
	defer reader.Close()

	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "failed to create directory from archive")
			}
			continue
		}
		if err := writeZipEntry(file, target); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create directory from archive")
	}
	in, err := file.Open()
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to read archive entry").
			WithDetail("entry", file.Name)
	}
	defer in.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode().Perm()|0o200)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create extracted file").
			WithDetail("path", target)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to write extracted file").
			WithDetail("path", target)
	}
	return nil
}

func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to open archive %s", archivePath)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to read gzip stream from %s", archivePath)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to read tar stream")
		}

		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(err, errors.ErrInternal, "failed to create directory from archive")
			}
		case tar.TypeReg:
			if err := writeTarEntry(tr, header, target); err != nil {
				return err
			}
		default:
			// Symlinks and special files do not occur in wheel/sdist archives.
		}
	}
}

func writeTarEntry(tr *tar.Reader, header *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create directory from archive")
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode).Perm()|0o200)
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create extracted file").
			WithDetail("path", target)
	}
	defer out.Close()

	if _, err := io.Copy(out, tr); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to write extracted file").
			WithDetail("path", target)
	}
	return nil
}

// safeJoin joins an archive entry name under dest, rejecting entries that
// would escape it.
func safeJoin(dest, entryName string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(entryName))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) && target != filepath.Clean(dest) {
		return "", errors.Newf(errors.ErrInvalidInput, "archive entry escapes extraction root: %s", entryName)
	}
	return target, nil
}
