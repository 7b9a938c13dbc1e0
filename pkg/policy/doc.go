// Package policy holds the stateless gates used directly by route handlers
// for actions that consume no metered credits, such as shortlink generation
// and contact detail visibility. Each gate is a pure function over actor and
// resource facts; nothing here touches the ledger.
package policy
