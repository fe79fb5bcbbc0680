// Package sandbox wraps the bubblewrap invocation that runs a
// container: assembling its argv from a resolved Container and a set of
// plugin-contributed ExecutionArgs, then spawning and waiting on the
// bwrap process the way the runtime layer spawns and waits on a managed
// process. Grounded on fakeroot_container() in the original exec/utils.rs
// for argument order and flags.
package sandbox
