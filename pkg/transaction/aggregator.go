package transaction

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pacwrap/pacwrap/pkg/cache"
	"github.com/pacwrap/pacwrap/pkg/events"
	"github.com/pacwrap/pacwrap/pkg/log"
	"github.com/pacwrap/pacwrap/pkg/metrics"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/registry"
	"github.com/pacwrap/pacwrap/pkg/schema"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// Aggregator drives a TransactionPlan through every container in a
// dependency closure, in topological order, publishing progress events
// as it goes and collecting per-container results.
type Aggregator struct {
	Registry             *registry.Registry
	Repos                map[string][]types.Repository
	Plan                 types.TransactionPlan
	Events               *events.Broker
	Cache                *cache.HitCounter
	Manifest             schema.Manifest
	CurrentSchemaVersion int
	SchemaArchiveDir     string
	LockTimeout          time.Duration
}

// SchemaArchivePath resolves the path to the distribution archive for a
// given schema version.
func (a *Aggregator) SchemaArchivePath(version int) string {
	return filepath.Join(a.SchemaArchiveDir, fmt.Sprintf("schema-%d.tar.zst", version))
}

// ContainerResult records what happened to one container in a run.
type ContainerResult struct {
	Container string
	Installed []string
	Removed   []string
	Skipped   bool
	Err       error
}

// Run walks the dependency closure of the requested container names in
// topological order, running every container's state machine to
// completion, even after a failure: it never stops early. If a
// container fails and agg.Plan.Flags.Force is not set, every later
// container in the closure whose dependencies include the failed one
// (directly or transitively) is marked Skipped rather than attempted,
// mirroring SkippedDueToParent in the original aggregator.
func (a *Aggregator) Run(names []string) ([]ContainerResult, error) {
	ordered, err := a.Registry.DependencyClosure(names)
	if err != nil {
		return nil, err
	}

	txID := uuid.New().String()
	logger := log.WithTransaction(txID)

	failed := make(map[string]bool)
	var results []ContainerResult

	for _, c := range ordered {
		if !a.Plan.Flags.Force && dependsOnFailed(c, failed) {
			failed[c.Name] = true
			results = append(results, ContainerResult{Container: c.Name, Skipped: true})
			metrics.ContainersSkippedTotal.Inc()
			a.Events.Publish(&events.Event{ID: txID, Type: events.EventSkippedDueToParent, Container: c.Name,
				Message: "skipped due to a failed dependency"})
			continue
		}

		timer := metrics.NewTimer()
		result := a.runContainer(txID, c)
		timer.ObserveDuration(metrics.ContainerCommitDuration)

		if result.Err != nil {
			failed[c.Name] = true
			metrics.ContainersFailedTotal.WithLabelValues(c.Name).Inc()
			if a.Plan.Flags.Force {
				logger.Error().Str("container", c.Name).Err(result.Err).Msg("container transaction failed, continuing due to --force")
			} else {
				logger.Error().Str("container", c.Name).Err(result.Err).Msg("container transaction failed, skipping its dependents")
			}
		} else {
			metrics.ContainersCommittedTotal.Inc()
		}
		metrics.CacheHitRatio.Set(a.Cache.Ratio())
		results = append(results, result)
	}

	return results, nil
}

func dependsOnFailed(c *types.Container, failed map[string]bool) bool {
	for _, dep := range c.Dependencies {
		if failed[dep] {
			return true
		}
	}
	return false
}

func (a *Aggregator) runContainer(txID string, c *types.Container) ContainerResult {
	h, err := openHandle(a, c)
	if err != nil {
		return ContainerResult{Container: c.Name, Err: err}
	}
	defer h.Close()
	h.TransactionID = txID

	state := StatePrepare
	for {
		stage := NewStage(state, c.SchemaVersion+1)
		next, err := stage.Engage(a, h, c)
		if err != nil {
			return ContainerResult{Container: c.Name, Err: err}
		}
		if state == StateComplete {
			break
		}
		state = next
	}

	return ContainerResult{Container: c.Name, Installed: h.Added(), Removed: h.Removed()}
}

func openHandle(a *Aggregator, c *types.Container) (*Handle, error) {
	repos, ok := a.Repos[c.Name]
	if !ok {
		return nil, perror.New(perror.KindConfigParse, "no repositories configured", c.Name)
	}
	return Open(c, repos, a.LockTimeout)
}
