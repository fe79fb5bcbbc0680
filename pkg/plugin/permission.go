package plugin

import (
	"fmt"

	"github.com/pacwrap/pacwrap/pkg/types"
)

// Dev grants access to one or more /dev nodes, grounded on dev.rs.
type Dev struct {
	Devices []string
}

func (d *Dev) Qualify(c *types.Container) (bool, *PermError) {
	for _, dev := range d.Devices {
		if !pathExists("/dev/" + dev) {
			return false, &PermError{Severity: SeverityFail, Message: fmt.Sprintf("/dev/%s is inaccessible", dev)}
		}
	}
	return true, nil
}

func (d *Dev) Register(args *ExecutionArgs) {
	for _, dev := range d.Devices {
		args.Dev("/dev/" + dev)
	}
}

func (d *Dev) ModuleName() string { return "DEV" }

// GPU grants access to the host's DRI render nodes, grounded on gpu.rs.
type GPU struct{}

func (g *GPU) Qualify(c *types.Container) (bool, *PermError) {
	if !pathExists("/dev/dri") {
		return false, &PermError{Severity: SeverityWarn, Message: "no GPU render nodes present"}
	}
	return true, nil
}

func (g *GPU) Register(args *ExecutionArgs) {
	args.Dev("/dev/dri")
}

func (g *GPU) ModuleName() string { return "GPU" }

// Pipewire grants access to the user's PipeWire socket, grounded on
// pipewire.rs.
type Pipewire struct {
	SocketPath string
}

func (p *Pipewire) Qualify(c *types.Container) (bool, *PermError) {
	if !pathExists(p.SocketPath) {
		return false, &PermError{Severity: SeverityWarn, Message: "pipewire socket not found"}
	}
	return true, nil
}

func (p *Pipewire) Register(args *ExecutionArgs) {
	args.Bind(p.SocketPath, p.SocketPath)
}

func (p *Pipewire) ModuleName() string { return "PIPEWIRE" }

// None is the explicit no-permission leaf, grounded on none.rs; it
// never qualifies and exists only so a container's configuration can
// list "no extra permissions" explicitly rather than by omission.
type None struct{}

func (n *None) Qualify(c *types.Container) (bool, *PermError) { return false, nil }
func (n *None) Register(args *ExecutionArgs)                  {}
func (n *None) ModuleName() string                            { return "NONE" }
