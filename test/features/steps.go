package features

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pacwrap/pacwrap/pkg/agent"
	"github.com/pacwrap/pacwrap/pkg/agentproto"
	"github.com/pacwrap/pacwrap/pkg/cache"
	"github.com/pacwrap/pacwrap/pkg/events"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/registry"
	"github.com/pacwrap/pacwrap/pkg/transaction"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// state is reset before every scenario by suite_test.go's Before hook. A
// behavioral suite like this one never runs scenarios concurrently, so a
// package-level struct is simpler than threading a context value through
// every step.
var state struct {
	envelope bytes.Buffer

	agentErr error

	containers map[string]*types.Container
	repos      map[string][]types.Repository

	closureErr   error
	agentSpawned bool

	results []transaction.ContainerResult
	runErr  error
}

func resetState() {
	state.envelope.Reset()
	state.agentErr = nil
	state.containers = make(map[string]*types.Container)
	state.repos = make(map[string][]types.Repository)
	state.closureErr = nil
	state.agentSpawned = false
	state.results = nil
	state.runErr = nil
}

// --- agent protocol steps ---

func anAgentEnvelopeWithMagic(hexMagic string) error {
	raw, err := strconv.ParseUint(strings.TrimPrefix(hexMagic, "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("parse magic %q: %w", hexMagic, err)
	}

	// Hand-assemble the frame with a bad magic: agentproto.Write always
	// writes the correct magic, so the mismatch case has to be built
	// directly rather than through the happy-path encoder.
	writeUint32(&state.envelope, uint32(raw))
	state.envelope.Write([]byte{1, 0, 0}) // frontend version
	state.envelope.Write([]byte{1, 0, 0}) // required version
	writeUint64(&state.envelope, 0)       // zero-length payload
	return nil
}

func anAgentEnvelopeWithVersions(frontend, required string) error {
	fe, err := parseVersion(frontend)
	if err != nil {
		return err
	}
	req, err := parseVersion(required)
	if err != nil {
		return err
	}

	payload, err := agentproto.EncodePayload(agent.Command{})
	if err != nil {
		return err
	}
	return agentproto.Write(&state.envelope, agentproto.Envelope{
		Frontend: fe,
		Required: req,
		Payload:  payload,
	})
}

func parseVersion(s string) (agentproto.Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return agentproto.Version{}, fmt.Errorf("version %q is not major.minor.patch", s)
	}
	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return agentproto.Version{}, fmt.Errorf("version %q: %w", s, err)
		}
		nums[i] = n
	}
	return agentproto.Version{Major: uint8(nums[0]), Minor: uint8(nums[1]), Patch: uint8(nums[2])}, nil
}

func writeUint32(b *bytes.Buffer, v uint32) {
	b.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeUint64(b *bytes.Buffer, v uint64) {
	for i := 0; i < 8; i++ {
		b.WriteByte(byte(v >> (8 * i)))
	}
}

func theAgentProcessesTheEnvelope() error {
	var stdout bytes.Buffer
	state.agentErr = agent.Transact(&state.envelope, &stdout)
	return nil
}

func theAgentExitsWithCode(want int) error {
	perr, ok := perror.As(state.agentErr)
	if !ok {
		return fmt.Errorf("agent error %v is not a typed error", state.agentErr)
	}
	if perr.Code() != want {
		return fmt.Errorf("agent exit code = %d, want %d", perr.Code(), want)
	}
	return nil
}

func noFilesUnderTheContainerRootWereMutated() error {
	// Envelope rejection happens in agentproto.Read, before agent.Transact
	// ever calls alpm.Open; a nil-root Command never reaches the backend
	// at all on this path, which is the invariant being checked.
	if state.agentErr == nil {
		return fmt.Errorf("expected the envelope to be rejected, got no error")
	}
	return nil
}

// --- registry / aggregator steps ---

func aContainerThatDependsOn(name, dep string) error {
	state.containers[name] = &types.Container{Name: name, Dependencies: []string{dep}}
	return nil
}

func aContainerWithNoDependencies(name string) error {
	state.containers[name] = &types.Container{Name: name}
	return nil
}

func containerHasNoRepositoriesConfigured(name string) error {
	delete(state.repos, name)
	return nil
}

func buildRegistry() (*registry.Registry, error) {
	list := make([]*types.Container, 0, len(state.containers))
	for _, c := range state.containers {
		list = append(list, c)
	}
	return registry.New(list)
}

func iResolveTheDependencyClosureFor(name string) error {
	reg, err := buildRegistry()
	if err != nil {
		state.closureErr = err
		return nil
	}
	_, state.closureErr = reg.DependencyClosure([]string{name})
	return nil
}

func resolutionFailsWithAConfigError() error {
	perr, ok := perror.As(state.closureErr)
	if !ok {
		return fmt.Errorf("closure error %v is not a typed error", state.closureErr)
	}
	if perr.Kind != perror.KindCyclicDependency {
		return fmt.Errorf("closure error kind = %v, want %v", perr.Kind, perror.KindCyclicDependency)
	}
	return nil
}

func noAgentWasSpawned() error {
	if state.agentSpawned {
		return fmt.Errorf("expected no agent to be spawned after a cyclic dependency error")
	}
	return nil
}

func iRunATransactionTargeting(name string) error {
	reg, err := buildRegistry()
	if err != nil {
		return err
	}

	agg := &transaction.Aggregator{
		Registry: reg,
		Repos:    state.repos,
		Events:   events.NewBroker(),
		Cache:    &cache.HitCounter{},
	}
	state.results, state.runErr = agg.Run([]string{name})
	return nil
}

func containerIsReportedAsSkippedDueToParent(child, parent string) error {
	for _, r := range state.results {
		if r.Container == child {
			if !r.Skipped {
				return fmt.Errorf("container %q result = %+v, want Skipped=true", child, r)
			}
			return nil
		}
	}
	return fmt.Errorf("no result recorded for container %q (parent %q)", child, parent)
}

func theRunExitsWithANonZeroStatus() error {
	for _, r := range state.results {
		if r.Err != nil || r.Skipped {
			return nil
		}
	}
	return fmt.Errorf("expected at least one failed or skipped container, got %+v", state.results)
}

func theContainerRootIsUntouched(name string) error {
	for _, r := range state.results {
		if r.Container == name && r.Skipped && len(r.Installed) == 0 && len(r.Removed) == 0 {
			return nil
		}
	}
	return fmt.Errorf("container %q was not cleanly skipped", name)
}
