// Package termctl implements the terminal-control guard named in spec §5:
// a scoped acquisition of terminal state on startup, restored whenever the
// caller invokes ResetTerminal (cmd/pacwrap does so on its normal and
// error exits). No signal handler is installed, so a process killed by a
// signal does not restore the terminal. Grounded
// on original_source's pacwrap-core/src/utils/termcontrol.rs, translated
// from nix's tcgetattr/tcsetattr to golang.org/x/term's GetState/Restore.
package termctl

import (
	"golang.org/x/term"
)

// Guard captures a file descriptor's terminal state so it can be restored
// later. If fd does not refer to a tty, state is nil and ResetTerminal is
// a no-op, matching the original's "not a tty" fallback.
type Guard struct {
	fd    int
	state *term.State
}

// New captures the terminal state of fd. A valid state is presumed to be
// returned if there is a valid tty at fd; if the process was not
// instantiated from a tty, the guard is a harmless no-op.
func New(fd int) *Guard {
	state, err := term.GetState(fd)
	if err != nil {
		return &Guard{fd: fd, state: nil}
	}
	return &Guard{fd: fd, state: state}
}

// ResetTerminal restores the terminal to the state captured by New. It is
// safe to call multiple times and safe to call when no tty was present.
func (g *Guard) ResetTerminal() error {
	if g.state == nil {
		return nil
	}
	return term.Restore(g.fd, g.state)
}
