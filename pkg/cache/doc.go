// Package cache implements the shared package download cache named in
// spec §4: a bbolt-backed index keyed by repository, package name,
// version and architecture, so multiple containers that depend on the
// same package never fetch it twice. Grounded on the bucket-per-entity
// CRUD pattern used for cluster state persistence, repurposed here for a
// single "downloads" bucket keyed by cache entry identity.
package cache
