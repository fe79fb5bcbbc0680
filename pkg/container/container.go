package container

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// meta mirrors the on-disk meta.toml shape. Field names are kept short
// and lower-case to match the TOML a container's root carries.
type meta struct {
	Type         string   `toml:"type"`
	Dependencies []string `toml:"dependencies"`
	Packages     []string `toml:"packages"`
	Schema       int      `toml:"schema_version"`
}

// Handle wraps a loaded container together with the data root its paths
// were canonicalized under, so callers never construct container paths
// by hand.
type Handle struct {
	Container *types.Container
	DataRoot  string
}

// MetaPath returns the path to a container's meta.toml under its
// instance directory.
func MetaPath(dataRoot, name string) string {
	return filepath.Join(dataRoot, name, "meta.toml")
}

// Load reads meta.toml for the named container and validates the
// invariants a transaction may rely on: the root directory exists, and
// (for Base containers) the declared home user resolves on the host.
func Load(dataRoot, name string) (*Handle, error) {
	instanceDir := filepath.Join(dataRoot, name)
	path := MetaPath(dataRoot, name)

	var m meta
	if _, err := toml.DecodeFile(path, &m); err != nil {
		if os.IsNotExist(err) {
			return nil, perror.New(perror.KindUnknownContainer, "no such container", name)
		}
		return nil, perror.Wrap(perror.KindConfigParse, err, "parse meta.toml", name)
	}

	ctype := types.ContainerType(m.Type)
	switch ctype {
	case types.ContainerTypeBase, types.ContainerTypeSlice, types.ContainerTypeLink:
	default:
		return nil, perror.New(perror.KindConfigParse, "unrecognized container type", name, m.Type)
	}

	root := filepath.Join(instanceDir, "root")
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, perror.New(perror.KindIO, "container root is missing or not a directory", root)
	}

	home, homeMount, err := resolveHome(ctype, instanceDir)
	if err != nil {
		return nil, err
	}

	c := &types.Container{
		Name:             name,
		Type:             ctype,
		Dependencies:     m.Dependencies,
		ExplicitPackages: m.Packages,
		Root:             root,
		Home:             home,
		HomeMount:        homeMount,
		CachePath:        filepath.Join(instanceDir, "var", "cache", "pacman", "pkg"),
		GnupgPath:        filepath.Join(instanceDir, "etc", "pacman.d", "gnupg"),
		SyncPath:         filepath.Join(instanceDir, "var", "lib", "pacman", "sync"),
		SchemaVersion:    m.Schema,
	}

	if err := requireUnderRoot(dataRoot, c); err != nil {
		return nil, err
	}

	return &Handle{Container: c, DataRoot: dataRoot}, nil
}

// resolveHome determines the container's home directory and host mount
// point. A Base container owns its home under its instance directory; a
// Link or Slice gets no home of its own here: both values are returned
// empty.
func resolveHome(ctype types.ContainerType, instanceDir string) (home, homeMount string, err error) {
	if ctype != types.ContainerTypeBase {
		return "", "", nil
	}
	home = filepath.Join(instanceDir, "home")
	u, lookupErr := user.Current()
	if lookupErr != nil {
		return "", "", perror.Wrap(perror.KindIO, lookupErr, "resolve invoking user")
	}
	homeMount = filepath.Join("/home", u.Username)
	return home, homeMount, nil
}

// requireUnderRoot enforces that every path a container declares
// canonicalizes under the instance data root, preventing a maliciously
// or accidentally crafted meta.toml from pointing outside it.
func requireUnderRoot(dataRoot string, c *types.Container) error {
	base, err := filepath.Abs(dataRoot)
	if err != nil {
		return perror.Wrap(perror.KindIO, err, "resolve data root")
	}
	paths := []string{c.Root, c.CachePath, c.GnupgPath, c.SyncPath}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return perror.Wrap(perror.KindIO, err, "resolve container path", p)
		}
		if !strings.HasPrefix(abs, base+string(filepath.Separator)) {
			return perror.New(perror.KindIO, "container path escapes instance data root", p)
		}
	}
	return nil
}

// Save persists a container's declared dependencies, packages and type
// back to its meta.toml.
func Save(dataRoot string, c *types.Container) error {
	path := MetaPath(dataRoot, c.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create instance directory for %s: %w", c.Name, err)
	}

	m := meta{
		Type:         string(c.Type),
		Dependencies: c.Dependencies,
		Packages:     c.ExplicitPackages,
		Schema:       c.SchemaVersion,
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create meta.toml for %s: %w", c.Name, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(m); err != nil {
		return fmt.Errorf("encode meta.toml for %s: %w", c.Name, err)
	}
	return nil
}
