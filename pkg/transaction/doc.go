// Package transaction implements the transaction handle, the stage state
// machine and the DAG-walking aggregator described in spec §4 and §5:
// Prepare, an optional UpdateSchema, Stage, Commit and Complete (or
// UpToDate when nothing changed), driven container-by-container in
// dependency order with SkippedDueToParent semantics when an earlier
// container in the walk failed. Grounded on the Transaction trait and
// TransactionAggregator of the original sync/transaction module,
// translated into a Stage interface and an explicit state enum.
package transaction
