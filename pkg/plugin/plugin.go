package plugin

import (
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// Severity distinguishes a plugin condition that should merely be
// reported from one that must abort the transaction outright.
type Severity int

const (
	SeverityWarn Severity = iota
	SeverityFail
)

// BindError is returned by a Filesystem leaf's Qualify when it cannot
// bind as configured.
type BindError struct {
	Severity Severity
	Message  string
}

func (e *BindError) Error() string { return e.Message }

// Filesystem is a bind-mount contributor qualified against a container's
// InsVars-equivalent (its resolved Container) before it is allowed to
// register bind mounts into the sandbox argv.
type Filesystem interface {
	Qualify(c *types.Container) *BindError
	Register(args *ExecutionArgs, c *types.Container)
	ModuleName() string
}

// PermError is returned by a Permission leaf's Qualify.
type PermError struct {
	Severity Severity
	Message  string
}

func (e *PermError) Error() string { return e.Message }

// Permission is a device or capability grant, qualified once per
// container and, if granted, contributing bwrap flags.
type Permission interface {
	// Qualify reports whether this permission applies. ok is false when
	// the permission is simply not requested; err is non-nil only on an
	// actual qualification failure.
	Qualify(c *types.Container) (ok bool, err *PermError)
	Register(args *ExecutionArgs)
	ModuleName() string
}

// Dbus is a D-Bus proxy rule contributor; unlike Filesystem and
// Permission it never fails qualification; it either applies to a
// container's configuration or it is absent from its plugin list.
type Dbus interface {
	Register(args *ExecutionArgs)
	ModuleName() string
}

// RegisterFilesystems walks a container's filesystem plugin list,
// registering every leaf that qualifies and propagating Warn as a
// logged message and Fail as a typed error that aborts the sandbox
// launch.
func RegisterFilesystems(plugins []Filesystem, c *types.Container, args *ExecutionArgs, warn func(module, msg string)) error {
	for _, p := range plugins {
		if err := p.Qualify(c); err != nil {
			if err.Severity == SeverityWarn {
				warn(p.ModuleName(), err.Message)
				continue
			}
			return perror.New(perror.KindSandboxSpawnFailed, err.Message, p.ModuleName())
		}
		p.Register(args, c)
	}
	return nil
}

// RegisterPermissions walks a container's permission plugin list the
// same way RegisterFilesystems does for filesystem leaves.
func RegisterPermissions(plugins []Permission, c *types.Container, args *ExecutionArgs, warn func(module, msg string)) error {
	for _, p := range plugins {
		ok, err := p.Qualify(c)
		if err != nil {
			if err.Severity == SeverityWarn {
				warn(p.ModuleName(), err.Message)
				continue
			}
			return perror.New(perror.KindSandboxSpawnFailed, err.Message, p.ModuleName())
		}
		if !ok {
			continue
		}
		p.Register(args)
	}
	return nil
}

// RegisterDbus registers every configured D-Bus proxy rule unconditionally.
func RegisterDbus(plugins []Dbus, args *ExecutionArgs) {
	for _, p := range plugins {
		p.Register(args)
	}
}
