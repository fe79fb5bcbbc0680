package agent

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pacwrap/pacwrap/pkg/agentproto"
	"github.com/pacwrap/pacwrap/pkg/alpm"
	"github.com/pacwrap/pacwrap/pkg/log"
	"github.com/pacwrap/pacwrap/pkg/perror"
	"github.com/pacwrap/pacwrap/pkg/types"
)

// FrontendVersion is the protocol semver this build speaks; the front-end
// writes it as both the Frontend and Required fields of every envelope it
// sends, and Transact checks those two fields against each other.
var FrontendVersion = agentproto.Version{Major: 1, Minor: 0, Patch: 0}

// Command is the sole payload shape the agent accepts: a resolved plan,
// the container root it applies to, and the repositories to sync
// against. TransactionID is the correlation ID the front-end generated
// for this run, echoed back in the agent's own log lines so the two
// processes' logs can be joined on it.
type Command struct {
	TransactionID string                `json:"transaction_id"`
	Root          string                `json:"root"`
	DB            string                `json:"db"`
	Repos         []types.Repository    `json:"repos"`
	Plan          types.TransactionPlan `json:"plan"`
}

// Transact is the agent's sole entry point, equivalent to the original
// binary's "transact" operand: any other invocation is a
// DirectExecution error.
func Transact(stdin io.Reader, stdout io.Writer) error {
	env, err := agentproto.Read(stdin)
	if err != nil {
		return err
	}

	ok, err := agentproto.Compatible(env.Frontend, env.Required)
	if err != nil {
		return err
	}
	if !ok {
		return perror.New(perror.KindInvalidVersion, "incompatible frontend/agent protocol version")
	}

	var cmd Command
	if err := agentproto.DecodePayload(env.Payload, &cmd); err != nil {
		return err
	}

	logger := log.WithTransaction(cmd.TransactionID)
	logger.Debug().Str("root", cmd.Root).Msg("agent received transact command")

	emitter := newEmitter(stdout)

	backend, err := alpm.Open(cmd.Root, cmd.DB, cmd.Repos)
	if err != nil {
		return err
	}
	defer backend.Release()

	plan, err := backend.Prepare(cmd.Plan)
	if err != nil {
		return err
	}

	for _, pkg := range plan.ToInstall {
		emitter.emit("install", pkg.Name())
	}
	for _, pkg := range plan.ToRemove {
		emitter.emit("remove", pkg.Name())
	}

	if err := backend.Commit(); err != nil {
		return err
	}

	emitter.emit("complete", "")
	return nil
}

// emitter writes the agent's line-delimited progress protocol:
// "EVENT\t<kind>\t<fields...>" per line, flushed after each event so the
// front-end's reader sees progress in real time.
type emitter struct {
	w *bufio.Writer
}

func newEmitter(w io.Writer) *emitter {
	return &emitter{w: bufio.NewWriter(w)}
}

func (e *emitter) emit(kind, field string) {
	fmt.Fprintf(e.w, "EVENT\t%s\t%s\n", kind, field)
	e.w.Flush()
}
