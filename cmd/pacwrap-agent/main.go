// Command pacwrap-agent is the binary bwrap execs inside the sandbox
// after the front-end has bound a container's root to /. It accepts
// exactly one operand, "transact", and refuses direct invocation any
// other way.
package main

import (
	"os"

	"github.com/pacwrap/pacwrap/pkg/agent"
	"github.com/pacwrap/pacwrap/pkg/perror"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) != 1 || args[0] != "transact" {
		perr := perror.New(perror.KindDirectExecution, "direct execution of this binary is unsupported")
		reportError(perr)
		return perr.Code()
	}

	if err := agent.Transact(os.Stdin, os.Stdout); err != nil {
		if perr, ok := perror.As(err); ok {
			reportError(perr)
			return perr.Code()
		}
		reportError(err)
		return 1
	}
	return 0
}

func reportError(err error) {
	os.Stderr.WriteString(err.Error())
	os.Stderr.WriteString("\n")
}
