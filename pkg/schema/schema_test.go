package schema

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func buildArchive(t *testing.T, files map[string]string) string {
	t.Helper()

	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0644, Size: int64(len(content))}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write tar content: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("new zstd writer: %v", err)
	}
	compressed := enc.EncodeAll(tarBuf.Bytes(), nil)
	enc.Close()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "schema-1.tar.zst")
	if err := os.WriteFile(archivePath, compressed, 0644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return archivePath
}

func TestExtractWritesManifestMatches(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"etc/pacman.conf": "# pacman config",
		"usr/share/x":     "not in manifest",
	})
	root := t.TempDir()

	result, err := Extract(archive, root, Manifest{Patterns: []string{"etc/**"}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if result.Written != 1 {
		t.Fatalf("Written = %d, want 1", result.Written)
	}

	data, err := os.ReadFile(filepath.Join(root, "etc/pacman.conf"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(data) != "# pacman config" {
		t.Fatalf("extracted content = %q", data)
	}

	if _, err := os.Stat(filepath.Join(root, "usr/share/x")); !os.IsNotExist(err) {
		t.Fatal("expected usr/share/x to be skipped, it does not match the manifest")
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	archive := buildArchive(t, map[string]string{"etc/pacman.conf": "v1"})
	root := t.TempDir()
	manifest := Manifest{Patterns: []string{"etc/**"}}

	if _, err := Extract(archive, root, manifest); err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}
	result, err := Extract(archive, root, manifest)
	if err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	if result.Written != 0 || result.Skipped != 1 {
		t.Fatalf("second Extract() = %+v, want Written=0 Skipped=1 for unchanged content", result)
	}
}

func TestExtractDoesNotTouchUnmanifestedUserFiles(t *testing.T) {
	archive := buildArchive(t, map[string]string{"etc/pacman.conf": "new"})
	root := t.TempDir()

	userFile := filepath.Join(root, "home/user/notes.txt")
	if err := os.MkdirAll(filepath.Dir(userFile), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(userFile, []byte("keep me"), 0644); err != nil {
		t.Fatalf("write user file: %v", err)
	}

	if _, err := Extract(archive, root, Manifest{Patterns: []string{"etc/**"}}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	data, err := os.ReadFile(userFile)
	if err != nil {
		t.Fatalf("user file was removed: %v", err)
	}
	if string(data) != "keep me" {
		t.Fatalf("user file contents changed: %q", data)
	}
}
