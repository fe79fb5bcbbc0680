// Package types holds pacwrap's core data model: the Container and its
// dependency DAG, the Repository set a container draws packages from, and
// the transaction plan shape an aggregator walks against that DAG.
package types
