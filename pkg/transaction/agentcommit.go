package transaction

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/pacwrap/pacwrap/pkg/agent"
	"github.com/pacwrap/pacwrap/pkg/agentproto"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/plugin"
	"github.com/pacwrap/pacwrap/pkg/sandbox"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// agentCommitTimeout bounds how long a container's commit waits on its
// sandboxed agent before the agent is killed and the commit fails.
const agentCommitTimeout = 10 * time.Minute

// commitViaAgent is a var, not a direct call, so tests can substitute a
// fake agent spawn without a real bwrap/pacwrap-agent binary present,
// mirroring sandbox.BwrapExecutable's override convention.
var commitViaAgent = spawnAgentCommit

// spawnAgentCommit builds the envelope for one container's commit,
// spawns pacwrap-agent inside a bwrap sandbox rooted at the container's
// filesystem, streams the envelope over its stdin, and translates its
// line-delimited stdout protocol into publish calls while waiting for
// it to finish. The agent performs its own ALPM Prepare and Commit
// against the container's database; this process only resolved what
// needed doing.
func spawnAgentCommit(ctx context.Context, h *Handle, c *types.Container, repos []types.Repository, plan types.TransactionPlan, publish func(kind, field string)) error {
	cmd := agent.Command{
		TransactionID: h.TransactionID,
		Root:          c.Root,
		DB:            c.SyncPath,
		Repos:         repos,
		Plan:          plan,
	}
	payload, err := agentproto.EncodePayload(cmd)
	if err != nil {
		return err
	}

	var envelope bytes.Buffer
	err = agentproto.Write(&envelope, agentproto.Envelope{
		Frontend: agent.FrontendVersion,
		Required: agent.FrontendVersion,
		Payload:  payload,
	})
	if err != nil {
		return err
	}

	sb := sandbox.New(ctx, c, plugin.NewExecutionArgs(), []string{sandbox.AgentExecutable, "transact"})

	stdin, err := sb.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := sb.Cmd().StdoutPipe()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, agentCommitTimeout)
	defer cancel()

	if err := sb.Start(); err != nil {
		return err
	}

	go func() {
		defer stdin.Close()
		io.Copy(stdin, &envelope)
	}()

	done := make(chan error, 1)
	go func() {
		streamAgentEvents(stdout, publish)
		done <- sb.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = sb.Kill()
		return perror.New(perror.KindSandboxSpawnFailed, "agent commit timed out", c.Name)
	}
}

// streamAgentEvents reads the agent's "EVENT\t<kind>\t<field>" protocol
// from r until EOF, translating each well-formed line into a publish
// call. Malformed lines are skipped rather than treated as failures:
// the agent's exit status is the authoritative outcome.
func streamAgentEvents(r io.Reader, publish func(kind, field string)) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "\t", 3)
		if len(parts) != 3 || parts[0] != "EVENT" {
			continue
		}
		publish(parts[1], parts[2])
	}
}
