package perror

import (
	"fmt"
	"strings"
)

// Kind identifies one branch of the error taxonomy in spec §7.
type Kind string

const (
	// Config errors: unknown container, parse failure, cyclic dependency.
	KindUnknownContainer Kind = "unknown_container"
	KindConfigParse      Kind = "config_parse"
	KindCyclicDependency Kind = "cyclic_dependency"

	// IO errors: missing path, permission denied, disk full.
	KindIO Kind = "io"

	// Lock errors.
	KindDatabaseLockHeld Kind = "database_lock_held"
	KindCacheLockHeld    Kind = "cache_lock_held"

	// Backend (ALPM) errors.
	KindUnsatisfiedDep   Kind = "unsatisfied_dep"
	KindConflict         Kind = "conflict"
	KindInvalidSignature Kind = "invalid_signature"
	KindFileConflict     Kind = "file_conflict"
	KindRetrieveFailed   Kind = "retrieve_failed"
	KindDiskFull         Kind = "disk_full"

	// Agent protocol errors.
	KindInvalidMagic         Kind = "invalid_magic"
	KindInvalidVersion       Kind = "invalid_version"
	KindDeserializationError Kind = "deserialization_error"
	KindDirectExecution      Kind = "direct_execution"

	// Sandbox errors.
	KindSandboxSpawnFailed Kind = "sandbox_spawn_failed"
	KindAgentExitedNonzero Kind = "agent_exited_nonzero"

	KindUnimplemented Kind = "unimplemented"
	KindGeneric       Kind = "generic"
)

// exitCodes mirrors the stable small-integer codes of spec §6/§7. Codes
// 1-5 are shared verbatim between the front-end and the agent; codes above
// 5 are front-end-only typed backend/sandbox failures.
var exitCodes = map[Kind]int{
	KindIO:                   2,
	KindDeserializationError: 3,
	KindInvalidVersion:       4,
	KindInvalidMagic:         5,
	KindUnsatisfiedDep:       6,
	KindConflict:             7,
	KindInvalidSignature:     8,
	KindFileConflict:         9,
	KindRetrieveFailed:       10,
	KindDiskFull:             11,
	KindDatabaseLockHeld:     12,
	KindCacheLockHeld:        13,
	KindUnknownContainer:     14,
	KindConfigParse:          15,
	KindCyclicDependency:     16,
	KindDirectExecution:      17,
	KindSandboxSpawnFailed:   18,
	KindAgentExitedNonzero:   19,
}

// Error is the single typed-error shape a caller branches on. Plumbing
// errors elsewhere in the tree stay plain wrapped stdlib errors; this type
// exists only for the kinds §7 requires callers to distinguish.
type Error struct {
	Kind      Kind
	Message   string
	Offenders []string
	Cause     error

	// RemoteCode is the raw process exit code observed from another
	// process, set alongside KindAgentExitedNonzero. KindForCode maps it
	// back to the Kind the remote process actually failed with.
	RemoteCode int
}

func New(kind Kind, message string, offenders ...string) *Error {
	return &Error{Kind: kind, Message: message, Offenders: offenders}
}

func Wrap(kind Kind, cause error, message string, offenders ...string) *Error {
	return &Error{Kind: kind, Message: message, Offenders: offenders, Cause: cause}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Offenders) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Offenders, ", "))
		b.WriteString("]")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Code returns the process exit code for this error's kind, or 1 (generic)
// if the kind is unmapped.
func (e *Error) Code() int {
	if code, ok := exitCodes[e.Kind]; ok {
		return code
	}
	return 1
}

// KindForCode reverse-maps a process exit code to the Kind that produces
// it, the inverse of Code. It lets a caller that only observes another
// process's exit status, such as a sandboxed agent, recover what kind of
// failure actually occurred on the other side.
func KindForCode(code int) (Kind, bool) {
	for kind, c := range exitCodes {
		if c == code {
			return kind, true
		}
	}
	return "", false
}

// As extracts a *Error from any error chain, mirroring errors.As without
// requiring callers to declare the target variable inline.
func As(err error) (*Error, bool) {
	for err != nil {
		if pe, ok := err.(*Error); ok {
			return pe, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
