package schema

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/pacwrap/pacwrap/pkg/perror"
)

// Manifest lists the glob patterns an archive's entries must match to be
// considered part of the shipped schema; anything on disk that doesn't
// match any pattern is left untouched by Extract.
type Manifest struct {
	Patterns []string
}

func (m Manifest) matches(path string) bool {
	for _, pattern := range m.Patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// Result summarizes what an extraction actually changed, reported back
// as a schema.extracted event.
type Result struct {
	Written int
	Skipped int
}

// Extract idempotently unpacks archivePath onto root: an entry already
// present on disk with the same content digest is left alone, and any
// path on disk not covered by the manifest is never removed, matching
// the "never alters unchanged files, never deletes user files" invariant.
func Extract(archivePath, root string, manifest Manifest) (Result, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return Result{}, perror.Wrap(perror.KindIO, err, "open schema archive", archivePath)
	}
	defer f.Close()

	reader, err := decompressor(archivePath, f)
	if err != nil {
		return Result{}, err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	tr := tar.NewReader(reader)
	var result Result

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, perror.Wrap(perror.KindDeserializationError, err, "read schema archive entry", archivePath)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || !manifest.matches(name) {
			continue
		}

		target := filepath.Join(root, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(hdr.Mode)); err != nil {
				return result, perror.Wrap(perror.KindIO, err, "create directory", target)
			}
		case tar.TypeReg:
			changed, err := writeIfChanged(target, tr, os.FileMode(hdr.Mode))
			if err != nil {
				return result, err
			}
			if changed {
				result.Written++
			} else {
				result.Skipped++
			}
		case tar.TypeSymlink:
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return result, perror.Wrap(perror.KindIO, err, "create symlink", target)
			}
		}
	}

	return result, nil
}

func decompressor(path string, f io.Reader) (io.Reader, error) {
	if strings.HasSuffix(path, ".xz") {
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, perror.Wrap(perror.KindDeserializationError, err, "open xz schema archive", path)
		}
		return r, nil
	}
	r, err := zstd.NewReader(f)
	if err != nil {
		return nil, perror.Wrap(perror.KindDeserializationError, err, "open zstd schema archive", path)
	}
	return r, nil
}

// writeIfChanged compares the digest of an existing file against the
// incoming entry before overwriting, so extraction is a no-op for files
// that haven't changed between schema versions.
func writeIfChanged(target string, r io.Reader, mode os.FileMode) (bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return false, perror.Wrap(perror.KindIO, err, "read schema entry", target)
	}
	newSum := sha256Sum(data)

	if existing, err := os.ReadFile(target); err == nil {
		if sha256Sum(existing) == newSum {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return false, perror.Wrap(perror.KindIO, err, "create parent directory", target)
	}
	if err := os.WriteFile(target, data, mode); err != nil {
		if os.IsNotExist(err) {
			return false, perror.Wrap(perror.KindDiskFull, err, "write schema entry", target)
		}
		return false, perror.Wrap(perror.KindIO, err, "write schema entry", target)
	}
	return true, nil
}

func sha256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
