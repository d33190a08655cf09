// Package notifications publishes run milestones to ntfy.
//
// When no topic is configured the service is a no-op, so the orchestrator can
// notify unconditionally. Delivery failures are returned to the caller, which
// logs them; they never affect a run's outcome.
package notifications
