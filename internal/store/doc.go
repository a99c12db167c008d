// Package store provides durable SQLite-backed persistence for the
// verification ledger, the velocity analytics engine, and the access
// controller.
//
// The store is the journal behind each engine: mutations journal here
// first and commit in memory only after the rows are durable, so a crash
// between the two leaves the database strictly ahead of memory and the
// next open rebuilds a superset of what callers observed.
//
// Append-only history (verifications, sales, velocity snapshots) is stored
// as plain insert-only tables; mutable snapshots (inventories, items,
// category aggregates, metrics, reporter grants, sensors) are latest-value
// tables written with upserts. Scalar state - the epoch counter, the id
// counters, and the tunable windows - lives in the meta table.
package store
