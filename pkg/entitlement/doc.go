// Package entitlement is the decision and metering core of the job board:
// it answers whether an actor may perform a gated action and charges the
// right source when they do.
//
// Two views over one service:
//
//   - Engine evaluates gates without side effects: admin bypass, role check,
//     plan allowance with purchased-credit fallback, and the posting-specific
//     fine rules for unverified accounts. Denials are Decisions, not errors.
//   - Consumer mutates the ledger once a caller decided to proceed. The
//     allowance is re-checked under the store's atomic guard, so concurrent
//     consumptions are serialized and the plan limit can never be overshot.
//
// Typical route handler flow:
//
//	decision, err := svc.Evaluate(ctx, actor, plans.ResourceJobPosting, entitlement.Request{
//		Job: &entitlement.JobFacts{ActiveJobs: active},
//	})
//	if err != nil {
//		// infrastructure failure: fail closed
//	}
//	if !decision.Allowed {
//		// surface decision.Reason
//	}
//	result, err := svc.Consume(ctx, actor, plans.ResourceJobPosting, 1)
//
// Storage failures always propagate as errors so callers can fail closed;
// the engine never turns an unreachable ledger into an allow.
package entitlement
