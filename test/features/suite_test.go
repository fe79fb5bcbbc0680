// Package features runs the behavioral suite against the engine
// in-process: no real ALPM backend or bwrap sandbox is spawned, since the
// scenarios here are chosen to be decidable from the registry, the agent
// protocol envelope, and the aggregator's own failure bookkeeping alone.
package features

import (
	"context"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"."},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("behavioral feature tests failed")
	}
}

func initializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		resetState()
		return c, nil
	})

	ctx.Step(`^an agent envelope with magic "([^"]*)"$`, anAgentEnvelopeWithMagic)
	ctx.Step(`^an agent envelope with frontend version "([^"]*)" and required version "([^"]*)"$`, anAgentEnvelopeWithVersions)
	ctx.Step(`^the agent processes the envelope$`, theAgentProcessesTheEnvelope)
	ctx.Step(`^the agent exits with code (\d+)$`, theAgentExitsWithCode)
	ctx.Step(`^no files under the container root were mutated$`, noFilesUnderTheContainerRootWereMutated)

	ctx.Step(`^a container "([^"]*)" that depends on "([^"]*)"$`, aContainerThatDependsOn)
	ctx.Step(`^a container "([^"]*)" with no dependencies$`, aContainerWithNoDependencies)
	ctx.Step(`^container "([^"]*)" has no repositories configured$`, containerHasNoRepositoriesConfigured)
	ctx.Step(`^I resolve the dependency closure for "([^"]*)"$`, iResolveTheDependencyClosureFor)
	ctx.Step(`^resolution fails with a config error$`, resolutionFailsWithAConfigError)
	ctx.Step(`^no agent was spawned$`, noAgentWasSpawned)
	ctx.Step(`^I run a transaction targeting "([^"]*)"$`, iRunATransactionTargeting)
	ctx.Step(`^container "([^"]*)" is reported as skipped due to parent "([^"]*)"$`, containerIsReportedAsSkippedDueToParent)
	ctx.Step(`^the run exits with a non-zero status$`, theRunExitsWithANonZeroStatus)
	ctx.Step(`^the "([^"]*)" container root is untouched$`, theContainerRootIsUntouched)
}
