package alpm

import (
	"fmt"

	alpm "github.com/Jguer/go-alpm/v2"

	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// Backend wraps a single ALPM handle rooted at one container's
// filesystem, with its sync databases registered from the container's
// configured repositories.
type Backend struct {
	handle *alpm.Handle
	root   string
}

// Open initializes an ALPM handle rooted at root, with its database
// directory at dbPath (normally <root>/var/lib/pacman), and registers
// every repository the container is configured to sync against.
func Open(root, dbPath string, repos []types.Repository) (*Backend, error) {
	h, err := alpm.Initialize(root, dbPath)
	if err != nil {
		return nil, perror.Wrap(perror.KindIO, err, "initialize ALPM handle", root)
	}

	b := &Backend{handle: h, root: root}
	for _, repo := range repos {
		if _, err := b.registerDB(repo); err != nil {
			h.Release()
			return nil, err
		}
	}
	return b, nil
}

func (b *Backend) registerDB(repo types.Repository) (*alpm.DB, error) {
	level, err := signatureLevel(repo.SignatureLevel)
	if err != nil {
		return nil, err
	}
	db, err := b.handle.RegisterSyncDB(repo.Name, level)
	if err != nil {
		return nil, perror.Wrap(perror.KindConfigParse, err, "register repository", repo.Name)
	}
	if err := db.SetServers(repo.Servers); err != nil {
		return nil, perror.Wrap(perror.KindConfigParse, err, "set repository servers", repo.Name)
	}
	return db, nil
}

func signatureLevel(s string) (alpm.SigLevel, error) {
	switch s {
	case "", "optional":
		return alpm.SigDatabaseOptional | alpm.SigPackageOptional, nil
	case "required":
		return alpm.SigDatabaseRequired | alpm.SigPackageRequired, nil
	case "never":
		return alpm.SigUseDefault, nil
	default:
		return 0, perror.New(perror.KindConfigParse, "unrecognized signature level", s)
	}
}

// Release frees the underlying handle.
func (b *Backend) Release() error {
	ok, err := b.handle.Release()
	if err != nil {
		return fmt.Errorf("release ALPM handle: %w", err)
	}
	_ = ok
	return nil
}

// Plan resolves a types.TransactionPlan against this handle's sync
// databases, preparing (but not yet committing) the set of package
// operations ALPM would perform.
type Plan struct {
	ToInstall []alpm.IPackage
	ToRemove  []alpm.IPackage
}

// Prepare resolves the dependency graph for a plan's install/remove
// targets. A target that cannot be added is reported as KindRetrieveFailed
// (install) or KindUnsatisfiedDep (remove); any failure to initialize or
// prepare the transaction, conflicts included, is reported as
// KindUnsatisfiedDep.
func (b *Backend) Prepare(plan types.TransactionPlan) (*Plan, error) {
	transFlags := translateFlags(plan.Flags)
	if err := b.handle.TransInit(transFlags); err != nil {
		return nil, perror.Wrap(perror.KindUnsatisfiedDep, err, "initialize transaction")
	}

	for _, ref := range plan.Install {
		if err := b.addInstallTarget(ref); err != nil {
			b.handle.TransRelease()
			return nil, err
		}
	}
	for _, name := range plan.Remove {
		if err := b.addRemoveTarget(name); err != nil {
			b.handle.TransRelease()
			return nil, err
		}
	}

	if err := b.handle.TransPrepare(); err != nil {
		b.handle.TransRelease()
		return nil, perror.Wrap(perror.KindUnsatisfiedDep, err, "prepare transaction")
	}

	pkgs := b.handle.TransList()
	removals := b.handle.TransRemove()

	return &Plan{ToInstall: pkgs, ToRemove: removals}, nil
}

func (b *Backend) addInstallTarget(ref types.PackageRef) error {
	if ref.LocalFile != "" {
		if err := b.handle.TransAddPkg(ref.LocalFile); err != nil {
			return perror.Wrap(perror.KindRetrieveFailed, err, "add local package", ref.LocalFile)
		}
		return nil
	}
	if err := b.handle.TransSyncTarget(ref.Name); err != nil {
		return perror.Wrap(perror.KindRetrieveFailed, err, "add sync target", ref.Name)
	}
	return nil
}

func (b *Backend) addRemoveTarget(name string) error {
	if err := b.handle.TransRemoveTarget(name); err != nil {
		return perror.Wrap(perror.KindUnsatisfiedDep, err, "add remove target", name)
	}
	return nil
}

// Commit applies a prepared plan. Every commit-time error is reported as
// KindFileConflict; signature and disk-space failures are not told apart.
func (b *Backend) Commit() error {
	defer b.handle.TransRelease()
	if err := b.handle.TransCommit(); err != nil {
		return perror.Wrap(perror.KindFileConflict, err, "commit transaction")
	}
	return nil
}

// ReleaseTransaction abandons a prepared transaction without committing it.
func (b *Backend) ReleaseTransaction() {
	b.handle.TransRelease()
}

// ForeignPackages returns every locally installed package with no
// corresponding entry in any registered sync database.
func (b *Backend) ForeignPackages() ([]string, error) {
	local, err := b.handle.LocalDB()
	if err != nil {
		return nil, perror.Wrap(perror.KindIO, err, "open local database")
	}

	syncDBs, err := b.handle.SyncDBs()
	if err != nil {
		return nil, perror.Wrap(perror.KindIO, err, "list sync databases")
	}

	var foreign []string
	for _, pkg := range local.PkgCache().Slice() {
		found := false
		for _, db := range syncDBs.Slice() {
			if db.Pkg(pkg.Name()) != nil {
				found = true
				break
			}
		}
		if !found {
			foreign = append(foreign, pkg.Name())
		}
	}
	return foreign, nil
}

// OrphanPackages returns every locally installed package that was
// pulled in as a dependency but is no longer required by any explicitly
// installed package.
func (b *Backend) OrphanPackages() ([]string, error) {
	local, err := b.handle.LocalDB()
	if err != nil {
		return nil, perror.Wrap(perror.KindIO, err, "open local database")
	}

	var orphans []string
	for _, pkg := range local.PkgCache().Slice() {
		if pkg.Reason() == alpm.PkgReasonDepend && pkg.ComputeRequiredBy() == nil {
			orphans = append(orphans, pkg.Name())
		}
	}
	return orphans, nil
}

func translateFlags(f types.TransactionFlags) int {
	var flags int
	if f.Cascade {
		flags |= int(alpm.TransFlagCascade)
	}
	if f.Recursive {
		flags |= int(alpm.TransFlagRecurse)
	}
	if f.KeepConfig {
		flags |= int(alpm.TransFlagNoSave)
	}
	if f.DatabaseOnly {
		flags |= int(alpm.TransFlagDBOnly)
	}
	if f.Force {
		flags |= int(alpm.TransFlagForce)
	}
	return flags
}
