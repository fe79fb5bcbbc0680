package transaction

import (
	"github.com/pacwrap/pacwrap/pkg/types"
)

// stateName identifies one step of the transaction state machine.
type stateName int

const (
	stateNamePrepare stateName = iota
	stateNameUpdateSchema
	stateNameStage
	stateNameCommit
	stateNameComplete
	stateNameUpToDate
)

// State names a step of the transaction state machine a Stage can hand
// control to next, together with whatever data that step needs carried
// forward. Commit is the only step with such data: whether the plan
// being committed reinstalls a package ALPM considers foreign.
type State struct {
	name             stateName
	foreignReinstall bool
}

var (
	StatePrepare      = State{name: stateNamePrepare}
	StateUpdateSchema = State{name: stateNameUpdateSchema}
	StateStage        = State{name: stateNameStage}
	StateComplete     = State{name: stateNameComplete}
	StateUpToDate     = State{name: stateNameUpToDate}
)

// StateCommit builds the commit state, carrying whether this commit
// reinstalls a foreign package under --force-foreign, per Commit's
// foreign_reinstall parameter.
func StateCommit(foreignReinstall bool) State {
	return State{name: stateNameCommit, foreignReinstall: foreignReinstall}
}

func (s State) String() string {
	switch s.name {
	case stateNamePrepare:
		return "prepare"
	case stateNameUpdateSchema:
		return "update_schema"
	case stateNameStage:
		return "stage"
	case stateNameCommit:
		return "commit"
	case stateNameComplete:
		return "complete"
	case stateNameUpToDate:
		return "up_to_date"
	default:
		return "unknown"
	}
}

// Stage is one step of the transaction state machine. Engage performs
// the step's work and returns the state to transition to next, mirroring
// the original implementation's Transaction trait: each concrete stage
// is itself immutable and the state it was constructed with determines
// its behavior.
type Stage interface {
	Engage(agg *Aggregator, h *Handle, c *types.Container) (State, error)
}

// NewStage constructs the Stage implementation for a given state, the
// Go analogue of the original's Transaction::new dispatch.
func NewStage(state State, schemaVersion int) Stage {
	switch state.name {
	case stateNamePrepare:
		return &prepareStage{}
	case stateNameUpdateSchema:
		return &updateSchemaStage{schemaVersion: schemaVersion}
	case stateNameStage:
		return &stageStage{}
	case stateNameCommit:
		return &commitStage{foreignReinstall: state.foreignReinstall}
	case stateNameComplete:
		return &completeStage{}
	case stateNameUpToDate:
		return &upToDateStage{}
	default:
		return &completeStage{}
	}
}
