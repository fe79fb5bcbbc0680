// Package agentproto implements the binary wire format described in
// spec §7 for the handoff between the front-end and the in-sandbox
// agent: a magic number, the front-end and required agent semver
// triples, a payload length, and a JSON payload, all written to the
// agent's stdin before it begins its transaction.
package agentproto
