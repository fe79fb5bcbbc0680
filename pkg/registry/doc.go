// Package registry implements the container registry described in
// spec §1: enumerating the configured containers, resolving a container
// by name, and computing the dependency closure of a requested set in
// stable topological order so a transaction aggregator can walk Base
// containers before the Slices and Links that depend on them.
package registry
