// Package ledger persists one run report per scheduler tick in a local
// BadgerDB database. The ledger is an append-only operational history: it
// answers "what did recent runs do" without touching the data lake or the
// vector index, and its loss affects nothing but that visibility.
package ledger
