// Package events provides a minimal typed pub/sub used to decouple metering
// decisions from their side effects. The consumption service broadcasts
// ledger events; notifiers and mailers subscribe without being wired into
// the business logic, which stays free of I/O-heavy side effects.
package events
