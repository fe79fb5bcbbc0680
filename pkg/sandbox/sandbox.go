package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/pacwrap/pacwrap/pkg/metrics"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/plugin"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// BwrapExecutable is the bubblewrap binary pacwrap shells out to. It is
// a var, not a const, so tests can point it at a stub.
var BwrapExecutable = "/usr/bin/bwrap"

// AgentExecutable is the path to pacwrap-agent as seen from inside the
// sandbox, the argv[0] the front-end execs once bwrap has bound a
// container's root to /.
var AgentExecutable = "/usr/bin/pacwrap-agent"

// Sandbox wraps a single bwrap invocation for one container.
type Sandbox struct {
	container *types.Container
	args      *plugin.ExecutionArgs
	cmd       *exec.Cmd
}

// New assembles the bwrap argv for a container from its resolved paths
// and the ExecutionArgs plugins have already populated, mirroring the
// flag order of the original fakeroot_container helper: tmpfs, root
// bind, fakeroot tooling, the pacman directories, home, dev/proc,
// namespace unsharing, then the caller-supplied command.
func New(ctx context.Context, c *types.Container, args *plugin.ExecutionArgs, agentArgv []string) *Sandbox {
	argv := []string{
		"--tmpfs", "/tmp",
		"--bind", c.Root, "/",
		"--ro-bind", "/usr/lib/libfakeroot", "/usr/lib/libfakeroot/",
		"--ro-bind", "/usr/bin/fakeroot", "/usr/bin/fakeroot",
		"--ro-bind", "/usr/bin/fakechroot", "/usr/bin/fakechroot",
		"--ro-bind", "/usr/bin/faked", "/usr/bin/faked",
		"--ro-bind", "/etc/resolv.conf", "/etc/resolv.conf",
		"--ro-bind", "/etc/localtime", "/etc/localtime",
		"--bind", c.SyncPath, "/var/lib/pacman/sync",
		"--bind", c.GnupgPath, "/etc/pacman.d/gnupg",
		"--bind", c.CachePath, "/var/cache/pacman/pkg",
	}

	for _, b := range args.Binds {
		argv = append(argv, "--bind", b[0], b[1])
	}
	for _, b := range args.ROBinds {
		argv = append(argv, "--ro-bind", b[0], b[1])
	}
	for _, d := range args.Dirs {
		argv = append(argv, "--dir", d)
	}
	for _, d := range args.Devices {
		argv = append(argv, "--dev-bind", d, d)
	}

	argv = append(argv,
		"--dev", "/dev",
		"--proc", "/proc",
		"--unshare-all", "--share-net",
		"--clearenv",
		"--hostname", "pacwrap",
		"--new-session",
		"--setenv", "TERM", "xterm",
		"--setenv", "PATH", "/usr/bin",
		"--setenv", "HOME", c.HomeMount,
	)
	for key, value := range args.Env {
		argv = append(argv, "--setenv", key, value)
	}
	argv = append(argv,
		"--die-with-parent",
		"--unshare-user",
		"--disable-userns",
	)
	argv = append(argv, agentArgv...)

	cmd := exec.CommandContext(ctx, BwrapExecutable, argv...)
	cmd.Env = []string{}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	return &Sandbox{container: c, args: args, cmd: cmd}
}

// StdinPipe exposes the agent's stdin so the caller can write an
// agentproto envelope to it before the process starts consuming input.
func (s *Sandbox) StdinPipe() (*os.File, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("open sandbox stdin pipe: %w", err)
	}
	s.cmd.Stdin = r
	return w, nil
}

// Cmd exposes the underlying *exec.Cmd for callers that need to wire
// stdout/stderr before Start.
func (s *Sandbox) Cmd() *exec.Cmd { return s.cmd }

// Start spawns the sandbox process.
func (s *Sandbox) Start() error {
	if err := s.cmd.Start(); err != nil {
		metrics.SandboxLaunchesTotal.WithLabelValues("spawn_failed").Inc()
		return perror.Wrap(perror.KindSandboxSpawnFailed, err, "spawn bwrap sandbox", s.container.Name)
	}
	return nil
}

// Wait blocks until the sandbox process exits, translating a nonzero
// agent exit into a typed AgentExitedNonzero error carrying the code.
func (s *Sandbox) Wait() error {
	err := s.cmd.Wait()
	if err == nil {
		metrics.SandboxLaunchesTotal.WithLabelValues("ok").Inc()
		return nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		metrics.SandboxLaunchesTotal.WithLabelValues("nonzero").Inc()
		return &perror.Error{
			Kind:       perror.KindAgentExitedNonzero,
			Message:    fmt.Sprintf("agent exited with code %d", exitErr.ExitCode()),
			Offenders:  []string{s.container.Name},
			RemoteCode: exitErr.ExitCode(),
		}
	}
	metrics.SandboxLaunchesTotal.WithLabelValues("wait_error").Inc()
	return perror.Wrap(perror.KindSandboxSpawnFailed, err, "wait for sandbox", s.container.Name)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// Kill terminates the entire sandbox process group immediately, used
// when a transaction is aborted mid-flight. Setpgid in New places bwrap
// (and whatever it forks inside the sandbox) in its own group, so a
// single signal to -pid reaches all of them instead of only bwrap.
func (s *Sandbox) Kill() error {
	if s.cmd.Process == nil {
		return nil
	}
	if err := unix.Kill(-s.cmd.Process.Pid, unix.SIGKILL); err != nil {
		return s.cmd.Process.Signal(syscall.SIGKILL)
	}
	return nil
}

// RunTimeout runs Start/Wait with an overall deadline, used by the
// front-end to bound how long it waits on a misbehaving agent.
func RunTimeout(ctx context.Context, s *Sandbox, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = s.Kill()
		return perror.New(perror.KindSandboxSpawnFailed, "sandbox timed out", s.container.Name)
	}
}
