// Package alpm wraps github.com/Jguer/go-alpm/v2, the ALPM backend
// binding pacwrap's transaction engine drives for dependency resolution,
// synchronization and commit. It narrows go-alpm's full surface to the
// handful of operations spec §4 and §7 name: opening a rooted instance,
// registering repositories, resolving and preparing a transaction, and
// querying the local database for foreign and orphaned packages.
package alpm
