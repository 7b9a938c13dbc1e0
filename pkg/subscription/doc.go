// Package subscription persists user subscriptions with plan limit snapshots
// and lazy billing-period rollover.
//
// A user has at most one open subscription (active or trial). Store
// implementations enforce that atomically: Activate supersedes the prior open
// row in one unit, and EnsureDefault makes first-access provisioning of the
// free tier idempotent under concurrent requests.
package subscription
