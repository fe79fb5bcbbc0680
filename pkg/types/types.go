package types

// ContainerType distinguishes the three container roles in the dependency
// DAG: a Base holds its own package database and filesystem tree, a Slice
// shares another container's filesystem but keeps its own configuration,
// and a Link borrows both filesystem and configuration from its dependency.
type ContainerType string

const (
	ContainerTypeBase  ContainerType = "base"
	ContainerTypeSlice ContainerType = "slice"
	ContainerTypeLink  ContainerType = "link"
)

// Container is a single node in the dependency DAG: its declared
// dependencies, the packages explicitly requested for it (as opposed to
// pulled in transitively), and the filesystem paths its instance data is
// rooted under.
type Container struct {
	Name             string
	Type             ContainerType
	Dependencies     []string
	ExplicitPackages []string
	Root             string
	Home             string
	HomeMount        string
	CachePath        string
	GnupgPath        string
	SyncPath         string
	SchemaVersion    int
}

// Repository is a package source a container's ALPM instance is configured
// to sync against.
type Repository struct {
	Name           string
	Servers        []string
	SignatureLevel string
}

// TransactionMode is the top-level operation requested of the transaction
// engine, corresponding to the front-end's -S/-R operand selection.
type TransactionMode string

const (
	TransactionModeUpgrade TransactionMode = "upgrade"
	TransactionModeInstall TransactionMode = "install"
	TransactionModeRemove  TransactionMode = "remove"
)

// TransactionFlags mirrors the front-end's sync/remove operand flags
// (-yy, --force-foreign, --dbonly, and so on) that alter how a plan is
// prepared and committed.
type TransactionFlags struct {
	Cascade               bool
	Recursive             bool
	KeepConfig            bool
	ForceForeignReinstall bool
	DatabaseOnly          bool
	NoConfirm             bool
	Force                 bool
	Refresh               bool
	RefreshAll            bool
}

// PackageRef identifies a single package target within a plan, either by
// name against a configured repository or by path to a local package file.
type PackageRef struct {
	Name      string
	Repo      string
	LocalFile string
}

// TransactionPlan is the concrete set of package operations an aggregator
// drives through the container DAG: packages to install or reinstall,
// packages to remove, under the mode and flags that shaped it.
type TransactionPlan struct {
	Install   []PackageRef
	Remove    []string
	Reinstall []string
	Mode      TransactionMode
	Flags     TransactionFlags
}
