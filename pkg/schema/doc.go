// Package schema implements the schema extractor described in spec §3:
// idempotently unpacking a container's base filesystem archive onto its
// root, skipping files whose manifest entry is unchanged and never
// touching files the manifest doesn't list, so user modifications outside
// the shipped tree survive repeated extraction. Supports zstd (current)
// and xz (legacy) archive compression.
package schema
