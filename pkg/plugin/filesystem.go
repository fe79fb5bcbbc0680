package plugin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/pacwrap/pacwrap/pkg/types"
)

// Dir binds one or more arbitrary host directories into the sandbox,
// grounded on dir.rs's path-list leaf.
type Dir struct {
	Path []string
}

func (d *Dir) Qualify(c *types.Container) *BindError {
	if len(d.Path) == 0 {
		return &BindError{Severity: SeverityFail, Message: "path not specified"}
	}
	return nil
}

func (d *Dir) Register(args *ExecutionArgs, c *types.Container) {
	for _, dir := range d.Path {
		args.Dir(dir)
	}
}

func (d *Dir) ModuleName() string { return "DIR" }

// Home binds the container's home directory and sets HOME/USER,
// grounded on home.rs.
type Home struct {
	User string
}

func (h *Home) Qualify(c *types.Container) *BindError {
	if _, err := os.Stat(c.Home); err != nil {
		return &BindError{Severity: SeverityFail, Message: "instance home not found"}
	}
	return nil
}

func (h *Home) Register(args *ExecutionArgs, c *types.Container) {
	args.Bind(c.Home, c.HomeMount)
	args.SetEnv("HOME", c.HomeMount)
	args.SetEnv("USER", h.User)
}

func (h *Home) ModuleName() string { return "HOME" }

// Root binds the container's full root filesystem read-write,
// grounded on root.rs.
type Root struct{}

func (r *Root) Qualify(c *types.Container) *BindError {
	if info, err := os.Stat(c.Root); err != nil || !info.IsDir() {
		return &BindError{Severity: SeverityFail, Message: "container root not found"}
	}
	return nil
}

func (r *Root) Register(args *ExecutionArgs, c *types.Container) {
	args.Bind(c.Root, "/")
}

func (r *Root) ModuleName() string { return "ROOT" }

// Sys binds host /sys read-only, grounded on sys.rs, qualifying only
// when /sys is actually mounted on the host (checked via mountinfo
// rather than a bare stat, since an unmounted /sys directory still
// exists as an empty path).
type Sys struct{}

func (s *Sys) Qualify(c *types.Container) *BindError {
	mounted, err := mountinfo.Mounted("/sys")
	if err != nil || !mounted {
		return &BindError{Severity: SeverityWarn, Message: "/sys is not mounted on the host"}
	}
	return nil
}

func (s *Sys) Register(args *ExecutionArgs, c *types.Container) {
	args.BindRO("/sys", "/sys")
}

func (s *Sys) ModuleName() string { return "SYS" }

// Tmp registers /tmp as a directory inside the sandbox, grounded on
// tmp.rs; the tmpfs itself comes from the sandbox's own --tmpfs /tmp.
// The specs.Mount built from SizeBytes is not passed to bwrap, so the
// size is not applied.
type Tmp struct {
	SizeBytes int64
}

func (t *Tmp) Qualify(c *types.Container) *BindError { return nil }

func (t *Tmp) Register(args *ExecutionArgs, c *types.Container) {
	opt := "tmpfs"
	if t.SizeBytes > 0 {
		opt = fmt.Sprintf("tmpfs:size=%d", t.SizeBytes)
	}
	_ = specs.Mount{Destination: "/tmp", Type: "tmpfs", Source: "tmpfs", Options: []string{opt}}
	args.Dir("/tmp")
}

func (t *Tmp) ModuleName() string { return "TMP" }

// pathExists is a small helper shared by the permission leaves below.
func pathExists(p string) bool {
	_, err := os.Stat(filepath.Clean(p))
	return err == nil
}
