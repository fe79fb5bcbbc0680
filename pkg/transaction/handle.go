package transaction

import (
	"time"

	"github.com/pacwrap/pacwrap/pkg/alpm"
	"github.com/pacwrap/pacwrap/pkg/lock"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// Handle wraps one container's ALPM backend together with its held
// database lock, giving stages a single object to resolve, prepare and
// release through; the commit itself runs in the sandboxed agent.
type Handle struct {
	Container     *types.Container
	Backend       *alpm.Backend
	TransactionID string
	dbLock        *lock.Handle
	plan          *alpm.Plan
}

// Open acquires the container's database lock and opens its ALPM
// backend, ready to accept a plan.
func Open(c *types.Container, repos []types.Repository, lockTimeout time.Duration) (*Handle, error) {
	dbLock, err := lock.Acquire(c.Root, lock.ScopeDatabase, lockTimeout)
	if err != nil {
		return nil, err
	}

	backend, err := alpm.Open(c.Root, c.SyncPath, repos)
	if err != nil {
		dbLock.Release()
		return nil, err
	}

	return &Handle{Container: c, Backend: backend, dbLock: dbLock}, nil
}

// IsSyncRequired reports whether either refresh flag asks for a sync
// database refresh; it does not inspect the databases themselves.
func (h *Handle) IsSyncRequired(refresh, refreshAll bool) bool {
	return refresh || refreshAll
}

// Added returns the packages a prepared plan would install.
func (h *Handle) Added() []string {
	if h.plan == nil {
		return nil
	}
	names := make([]string, 0, len(h.plan.ToInstall))
	for _, p := range h.plan.ToInstall {
		names = append(names, p.Name())
	}
	return names
}

// Removed returns the packages a prepared plan would remove.
func (h *Handle) Removed() []string {
	if h.plan == nil {
		return nil
	}
	names := make([]string, 0, len(h.plan.ToRemove))
	for _, p := range h.plan.ToRemove {
		names = append(names, p.Name())
	}
	return names
}

// Prepare resolves a plan against this handle's backend.
func (h *Handle) Prepare(plan types.TransactionPlan) error {
	prepared, err := h.Backend.Prepare(plan)
	if err != nil {
		return err
	}
	h.plan = prepared
	return nil
}

// ForeignPkgs delegates to the backend.
func (h *Handle) ForeignPkgs() ([]string, error) { return h.Backend.ForeignPackages() }

// OrphanPkgs delegates to the backend.
func (h *Handle) OrphanPkgs() ([]string, error) { return h.Backend.OrphanPackages() }

// Release abandons any prepared transaction; the ALPM backend and the
// database lock stay open until Close. The sandboxed agent
// performs the actual commit against its own ALPM handle on this same
// root; this release lets it do so without contending over ALPM's
// internal transaction state.
func (h *Handle) Release() {
	h.Backend.ReleaseTransaction()
}

// Close releases the backend and the database lock. It must be called
// exactly once per Open, on every exit path.
func (h *Handle) Close() error {
	err := h.Backend.Release()
	h.dbLock.Release()
	return err
}
