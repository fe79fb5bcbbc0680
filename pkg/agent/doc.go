// Package agent implements the in-sandbox executor described in
// spec §7 and §8: reading an agentproto envelope from stdin, running the
// transaction it describes against the container root bwrap has already
// bound to /, and emitting line-delimited progress events on stdout.
// Grounded on pacwrap-agent's transact command and its DirectExecution
// guard against being invoked any other way.
package agent
