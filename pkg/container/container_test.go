package container

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

func writeMeta(w io.Writer, m meta) error {
	return toml.NewEncoder(w).Encode(m)
}

func makeInstance(t *testing.T, dataRoot, name string, m meta) {
	t.Helper()
	instanceDir := filepath.Join(dataRoot, name)
	if err := os.MkdirAll(filepath.Join(instanceDir, "root"), 0755); err != nil {
		t.Fatalf("create instance root: %v", err)
	}
	f, err := os.Create(MetaPath(dataRoot, name))
	if err != nil {
		t.Fatalf("create meta.toml: %v", err)
	}
	defer f.Close()
	if err := writeMeta(f, m); err != nil {
		t.Fatalf("write meta.toml: %v", err)
	}
}

func TestLoadBaseContainer(t *testing.T) {
	dataRoot := t.TempDir()
	makeInstance(t, dataRoot, "base", meta{Type: "base", Packages: []string{"base", "zsh"}})

	h, err := Load(dataRoot, "base")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if h.Container.Type != types.ContainerTypeBase {
		t.Fatalf("Type = %v, want base", h.Container.Type)
	}
	if h.Container.Home == "" || h.Container.HomeMount == "" {
		t.Fatal("expected a Base container to resolve Home and HomeMount")
	}
	if len(h.Container.ExplicitPackages) != 2 {
		t.Fatalf("ExplicitPackages = %v, want 2 entries", h.Container.ExplicitPackages)
	}
}

func TestLoadSliceContainerHasNoHome(t *testing.T) {
	dataRoot := t.TempDir()
	makeInstance(t, dataRoot, "dev", meta{Type: "slice", Dependencies: []string{"base"}})

	h, err := Load(dataRoot, "dev")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if h.Container.Home != "" {
		t.Fatalf("Home = %q, want empty for a Slice container", h.Container.Home)
	}
}

func TestLoadUnknownContainer(t *testing.T) {
	dataRoot := t.TempDir()
	_, err := Load(dataRoot, "ghost")
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindUnknownContainer {
		t.Fatalf("err = %v, want a KindUnknownContainer perror.Error", err)
	}
}

func TestLoadRejectsUnrecognizedType(t *testing.T) {
	dataRoot := t.TempDir()
	makeInstance(t, dataRoot, "weird", meta{Type: "nonsense"})

	_, err := Load(dataRoot, "weird")
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindConfigParse {
		t.Fatalf("err = %v, want a KindConfigParse perror.Error", err)
	}
}

func TestLoadMissingRootDirectory(t *testing.T) {
	dataRoot := t.TempDir()
	instanceDir := filepath.Join(dataRoot, "noroot")
	if err := os.MkdirAll(instanceDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(MetaPath(dataRoot, "noroot"))
	if err != nil {
		t.Fatalf("create meta.toml: %v", err)
	}
	if err := writeMeta(f, meta{Type: "base"}); err != nil {
		t.Fatalf("write meta.toml: %v", err)
	}
	f.Close()

	_, err = Load(dataRoot, "noroot")
	perr, ok := perror.As(err)
	if !ok || perr.Kind != perror.KindIO {
		t.Fatalf("err = %v, want a KindIO perror.Error", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dataRoot := t.TempDir()
	makeInstance(t, dataRoot, "base", meta{Type: "base"})

	c := &types.Container{
		Name:             "base",
		Type:             types.ContainerTypeBase,
		Dependencies:     []string{},
		ExplicitPackages: []string{"neovim"},
		SchemaVersion:    3,
	}
	if err := Save(dataRoot, c); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	h, err := Load(dataRoot, "base")
	if err != nil {
		t.Fatalf("Load() after Save() error = %v", err)
	}
	if h.Container.SchemaVersion != 3 {
		t.Fatalf("SchemaVersion = %d, want 3", h.Container.SchemaVersion)
	}
	if len(h.Container.ExplicitPackages) != 1 || h.Container.ExplicitPackages[0] != "neovim" {
		t.Fatalf("ExplicitPackages = %v, want [neovim]", h.Container.ExplicitPackages)
	}
}
