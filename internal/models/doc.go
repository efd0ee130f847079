// Package models defines the domain types for the partner calculator.
//
// # Aggregate shape
//
// A Workspace is the unit of persistence and sharing: it holds every
// Project, the partner-name Settings, and which project is currently
// selected. The remote store persists one Workspace document per workspace
// id and replicates it to all attached clients as a whole snapshot.
//
//   - Workspace: root aggregate, one document in the remote store
//   - Project: named container of transactions, created/deleted explicitly
//   - Transaction: immutable-once-recorded ledger entry
//   - Settings: the two partner names; renaming rewrites history
//
// # Design principles
//
// 1. **Value semantics**: models are plain structs whose JSON tags match the
// persisted document format; Clone produces deep copies so snapshots handed
// to the store never alias live state.
// 2. **No behavior beyond shape**: balances and settlements are computed by
// the calculator package; the workspace controller owns all mutation.
// 3. **Exactly two partners**: participants are the two configured name
// strings, not user accounts.
package models
