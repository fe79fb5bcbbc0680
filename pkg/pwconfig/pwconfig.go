// Package pwconfig holds pacwrap's process-wide, immutable configuration:
// the distribution repository URL used to bootstrap base containers, and
// the build identity stamped in at link time. Both are set once at process
// startup (see cmd/pacwrap/main.go) and never mutated afterward.
package pwconfig

import (
	"os"
	"path/filepath"
)

const defaultDistRepo = "file:///usr/share/pacwrap/dist-repo"

// Identity is populated via -ldflags at build time, mirroring the
// PACWRAP_BUILDSTAMP/PACWRAP_BUILDTIME/PACWRAP_BUILD environment variables
// the original build.rs stamped into the binary.
var (
	BuildStamp = "unknown"
	BuildTime  = "unknown"
	Build      = "DEV"
)

// distRepo is resolved once in init() from PACWRAP_DIST_REPO, falling back
// to the compiled-in default.
var distRepo = resolveDistRepo()

func resolveDistRepo() string {
	if v := os.Getenv("PACWRAP_DIST_REPO"); v != "" {
		return v
	}
	return defaultDistRepo
}

// DistRepo returns the URL of the distribution repository used to
// bootstrap base containers.
func DistRepo() string {
	return distRepo
}

// dataRoot is resolved once from PACWRAP_DATA_ROOT, falling back to
// $XDG_DATA_HOME/pacwrap (or ~/.local/share/pacwrap).
var dataRoot = resolveDataRoot()

func resolveDataRoot() string {
	if v := os.Getenv("PACWRAP_DATA_ROOT"); v != "" {
		return v
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "pacwrap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pacwrap")
	}
	return filepath.Join(home, ".local", "share", "pacwrap")
}

// DataRoot returns the directory under which every container's instance
// directory (root/, home/, meta.toml) lives.
func DataRoot() string {
	return dataRoot
}

// ContainersDir returns the directory pacwrap scans for configured
// container instance directories.
func ContainersDir() string {
	return filepath.Join(dataRoot, "containers")
}

// ReposPath returns the path to the repository configuration every
// container's ALPM backend is registered against.
func ReposPath() string {
	return filepath.Join(dataRoot, "repos.toml")
}
