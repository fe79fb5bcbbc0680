// Package lock implements the per-container database lock and shared
// cache lock described in spec §4 and §7: a lock file created with
// O_EXCL provides mutual exclusion, and a blocked caller uses fsnotify to
// wait for that file's removal and retry until its timeout expires.
package lock
