// Package perror defines the typed error taxonomy shared by the front-end
// and the in-sandbox agent: Config, IO, Lock, Backend, Agent and Sandbox
// errors, each carrying the offending names needed to print a single
// formatted line and to pick the process exit code.
package perror
