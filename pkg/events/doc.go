// Package events provides an in-memory pub/sub broker for transaction
// progress: download/install/remove/conflict/schema notifications an
// aggregator publishes while walking a plan through the container
// dependency DAG, fanned out to any number of buffered subscriber
// channels with non-blocking, best-effort delivery.
package events
