package plugin

import (
	"testing"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

func TestExecutionArgsAccumulate(t *testing.T) {
	args := NewExecutionArgs()
	args.Bind("/host/a", "/sandbox/a")
	args.BindRO("/host/b", "/sandbox/b")
	args.Dir("/tmp/work")
	args.Dev("/dev/dri")
	args.DbusRule("call", "org.freedesktop.*=*")
	args.SetEnv("TERM", "xterm")

	if len(args.Binds) != 1 || args.Binds[0][0] != "/host/a" || args.Binds[0][1] != "/sandbox/a" {
		t.Fatalf("Binds = %v", args.Binds)
	}
	if len(args.ROBinds) != 1 {
		t.Fatalf("ROBinds = %v", args.ROBinds)
	}
	if len(args.Dirs) != 1 || args.Dirs[0] != "/tmp/work" {
		t.Fatalf("Dirs = %v", args.Dirs)
	}
	if len(args.Devices) != 1 {
		t.Fatalf("Devices = %v", args.Devices)
	}
	if len(args.DBus) != 1 {
		t.Fatalf("DBus = %v", args.DBus)
	}
	if args.Env["TERM"] != "xterm" {
		t.Fatalf("Env[TERM] = %q, want xterm", args.Env["TERM"])
	}
}

func TestRegisterFilesystemsWarnIsNonFatal(t *testing.T) {
	c := &types.Container{Name: "base"}
	args := NewExecutionArgs()
	var warned []string
	warn := func(module, msg string) { warned = append(warned, module) }

	err := RegisterFilesystems([]Filesystem{&Sys{}}, c, args, warn)
	if err != nil {
		t.Fatalf("RegisterFilesystems() error = %v, want nil for a Warn severity", err)
	}
}

func TestRegisterFilesystemsFailAbortsWithTypedError(t *testing.T) {
	c := &types.Container{Name: "base"}
	args := NewExecutionArgs()
	warn := func(module, msg string) {}

	err := RegisterFilesystems([]Filesystem{&Home{User: "user"}}, c, args, warn)
	if err == nil {
		t.Fatal("expected RegisterFilesystems to fail when home does not exist")
	}
	if perr, ok := perror.As(err); !ok || perr.Kind != perror.KindSandboxSpawnFailed {
		t.Fatalf("RegisterFilesystems() error = %v, want a typed %s error", err, perror.KindSandboxSpawnFailed)
	}
}

func TestRegisterPermissionsSkipsUnqualified(t *testing.T) {
	c := &types.Container{Name: "base"}
	args := NewExecutionArgs()
	warn := func(module, msg string) {}

	if err := RegisterPermissions([]Permission{&None{}}, c, args, warn); err != nil {
		t.Fatalf("RegisterPermissions() error = %v", err)
	}
	if len(args.Devices) != 0 {
		t.Fatalf("Devices = %v, want none registered for None permission", args.Devices)
	}
}

func TestRegisterDbusAppliesEveryRule(t *testing.T) {
	args := NewExecutionArgs()
	RegisterDbus([]Dbus{&XdgPortal{}, &AppIndicator{}}, args)

	if len(args.DBus) != 5 {
		t.Fatalf("DBus rules = %d, want 5 (2 from XdgPortal, 3 from AppIndicator)", len(args.DBus))
	}
}

func TestDirQualifyFailsWithoutPath(t *testing.T) {
	d := &Dir{}
	if err := d.Qualify(&types.Container{}); err == nil {
		t.Fatal("expected Qualify to fail when no path is configured")
	}
}
