// Package datalake defines the interfaces this system consumes from the
// document-oriented data lake: session-scoped transactions, prefix-filtered
// collection discovery, and record cursors.
//
// Collection discovery and record fetch are only reachable through a
// Session, so neither can happen outside an active transaction. The
// transaction's write-visibility semantics belong to the underlying lake;
// this package only manages the begin/commit/abort lifecycle.
package datalake
