// Package container implements the container handle described in
// spec §2: loading and persisting a container's meta.toml, and enforcing
// the invariants a loaded container must satisfy before any transaction
// is allowed to touch it (its root exists and is a directory, its home
// user resolves on the host, and every path it declares canonicalizes
// under the instance data root).
package container
