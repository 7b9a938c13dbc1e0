// Package ledger is the usage ledger for the metering core: per-period usage
// counters against plan allowances and purchased credit balances with
// optional expiry.
//
// The Store interface exposes only atomic guarded mutations such as
// increment-if-under-limit and decrement-if-available. There is no raw
// write path, so the ledger invariants cannot be violated from calling code:
//
//   - a counter never exceeds the limit it was incremented against
//   - a balance never goes negative
//   - Balance == TotalPurchased - UsedCredits after every operation
//
// Three backends are provided: an in-process MemoryStore for tests and
// single-node use, a PostgresStore built on single guarded statements, and a
// RedisStore built on Lua scripts.
package ledger
