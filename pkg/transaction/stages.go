package transaction

import (
	"context"
	"fmt"

	"github.com/pacwrap/pacwrap/pkg/events"
	"github.com/pacwrap/pacwrap/pkg/log"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/schema"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// prepareStage resolves the requested plan against the container's ALPM
// backend, transitioning to UpdateSchema if the container's on-disk
// schema version lags the distribution's, otherwise straight to Stage.
type prepareStage struct{}

func (s *prepareStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	if err := h.Prepare(agg.Plan); err != nil {
		return StateComplete, err
	}

	if len(h.Added()) == 0 && len(h.Removed()) == 0 {
		return StateUpToDate, nil
	}

	if c.SchemaVersion < agg.CurrentSchemaVersion {
		return StateUpdateSchema, nil
	}
	return StateStage, nil
}

// updateSchemaStage idempotently re-extracts the container's base
// filesystem archive before packages are staged, grounded on Schema in
// container.rs.
type updateSchemaStage struct {
	schemaVersion int
}

func (s *updateSchemaStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	result, err := schema.Extract(agg.SchemaArchivePath(s.schemaVersion), c.Root, agg.Manifest)
	if err != nil {
		return StateComplete, err
	}
	c.SchemaVersion = s.schemaVersion
	log.WithContainer(c.Name).Info().
		Int("written", result.Written).Int("skipped", result.Skipped).
		Msg("container schema updated")
	agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventSchemaExtracted, Container: c.Name,
		Message: fmt.Sprintf("%s's schema updated", c.Name)})
	return StatePrepare, nil
}

// stageStage verifies the signatures of the plan's local package files
// and announces each package the prepared plan adds with a
// download.completed event, counting it as a cache hit. It does not
// download packages or look them up in the cache index; the agent
// retrieves them during its commit, and no miss is ever recorded here.
// It also settles whether
// the pending commit reinstalls a package ALPM already considers
// foreign (installed locally but absent from every configured sync
// database): that only matters, and is only worth the extra ALPM query,
// when the plan's ForceForeignReinstall flag actually asked for it.
type stageStage struct{}

func (s *stageStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	if err := verifyLocalPackages(agg.Plan, c.GnupgPath); err != nil {
		return StateComplete, err
	}

	foreignReinstall := false
	if agg.Plan.Flags.ForceForeignReinstall {
		foreign, err := h.ForeignPkgs()
		if err != nil {
			return StateComplete, err
		}
		foreignReinstall = reinstallsForeignPkg(h.Added(), foreign)
	}

	for _, name := range h.Added() {
		if agg.Cache != nil {
			agg.Cache.Hit()
		}
		agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventDownloadCompleted, Container: c.Name, Package: name})
	}
	return StateCommit(foreignReinstall), nil
}

func reinstallsForeignPkg(added, foreign []string) bool {
	foreignSet := make(map[string]bool, len(foreign))
	for _, name := range foreign {
		foreignSet[name] = true
	}
	for _, name := range added {
		if foreignSet[name] {
			return true
		}
	}
	return false
}

// commitStage hands the prepared plan to a sandboxed pacwrap-agent for
// the actual privileged commit, the agent-mediated phase spec §4.5
// calls the core of the transaction engine. The front-end never commits
// to ALPM itself: it abandons its own prepared transaction, spawns the
// agent inside a bwrap sandbox rooted at the container's filesystem, and
// streams the agent's progress back over its stdout protocol. A Commit
// that fails because a package could not be retrieved is retried
// exactly once, since a sync mirror hiccup is often gone a moment
// later; any other failure is terminal.
type commitStage struct {
	foreignReinstall bool
}

func (s *commitStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	repos := agg.Repos[c.Name]
	plan := agg.Plan
	plan.Flags.ForceForeignReinstall = s.foreignReinstall

	// The agent opens its own ALPM handle on this root and performs its
	// own Prepare+Commit; this process's prepared transaction must be
	// abandoned first so the two don't contend over ALPM's internal
	// transaction state. The pacwrap-level database lock (h.dbLock)
	// stays held throughout, guarding against a second pacwrap process.
	h.Release()

	publish := func(kind, field string) {
		switch kind {
		case "install":
			agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventInstallStarted, Container: c.Name, Package: field})
		case "remove":
			agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventRemoveStarted, Container: c.Name, Package: field})
		}
	}

	err := commitViaAgent(context.Background(), h, c, repos, plan, publish)
	if err != nil && isRetrieveFailed(err) {
		log.WithContainer(c.Name).Warn().Err(err).Msg("agent reported a retrieval failure, retrying commit once")
		agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventRetrieveFailed, Container: c.Name,
			Message: "retrying commit after a retrieval failure"})
		err = commitViaAgent(context.Background(), h, c, repos, plan, publish)
	}
	if err != nil {
		return StateComplete, err
	}

	for _, name := range h.Added() {
		agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventInstallCompleted, Container: c.Name, Package: name})
	}
	for _, name := range h.Removed() {
		agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventRemoveCompleted, Container: c.Name, Package: name})
	}
	return StateComplete, nil
}

// isRetrieveFailed reports whether err represents a RetrieveFailed
// condition, whether it was raised in this process or recovered from
// the sandboxed agent's exit code.
func isRetrieveFailed(err error) bool {
	perr, ok := perror.As(err)
	if !ok {
		return false
	}
	if perr.Kind == perror.KindRetrieveFailed {
		return true
	}
	if perr.Kind == perror.KindAgentExitedNonzero {
		kind, ok := perror.KindForCode(perr.RemoteCode)
		return ok && kind == perror.KindRetrieveFailed
	}
	return false
}

// completeStage finalizes bookkeeping for a container once its stages
// have run, regardless of whether anything actually changed.
type completeStage struct{}

func (s *completeStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventContainerComplete, Container: c.Name})
	return StateComplete, nil
}

// upToDateStage reports a container needed no changes, grounded
// directly on UpToDate in uptodate.rs.
type upToDateStage struct{}

func (s *upToDateStage) Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error) {
	log.WithContainer(c.Name).Info().Msg("container is up to date")
	agg.Events.Publish(&events.Event{ID: h.TransactionID, Type: events.EventUpToDate, Container: c.Name})
	return StateComplete, nil
}
