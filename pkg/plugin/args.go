package plugin

import "fmt"

// ExecutionArgs accumulates the bwrap argv and environment a sandbox
// invocation will be launched with, built up by each qualifying plugin
// leaf in turn before pkg/sandbox renders it to a process argv.
type ExecutionArgs struct {
	Binds   [][2]string // host path -> sandbox path
	ROBinds [][2]string
	Dirs    []string
	Devices []string
	DBus    [][2]string // call|broadcast|own -> rule
	Env     map[string]string
}

// NewExecutionArgs returns an empty argument set ready for plugins to
// populate.
func NewExecutionArgs() *ExecutionArgs {
	return &ExecutionArgs{Env: make(map[string]string)}
}

func (a *ExecutionArgs) Bind(host, sandbox string) {
	a.Binds = append(a.Binds, [2]string{host, sandbox})
}

func (a *ExecutionArgs) BindRO(host, sandbox string) {
	a.ROBinds = append(a.ROBinds, [2]string{host, sandbox})
}

func (a *ExecutionArgs) Dir(path string) {
	a.Dirs = append(a.Dirs, path)
}

func (a *ExecutionArgs) Dev(path string) {
	a.Devices = append(a.Devices, path)
}

func (a *ExecutionArgs) DbusRule(kind, rule string) {
	a.DBus = append(a.DBus, [2]string{kind, rule})
}

func (a *ExecutionArgs) SetEnv(key, value string) {
	a.Env[key] = value
}

func (a *ExecutionArgs) String() string {
	return fmt.Sprintf("binds=%d ro_binds=%d dirs=%d devices=%d dbus=%d",
		len(a.Binds), len(a.ROBinds), len(a.Dirs), len(a.Devices), len(a.DBus))
}
