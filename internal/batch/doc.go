// Package batch drives one parity run over a work list.
//
// An Orchestrator performs the setup steps in a fixed order (work list,
// credentials, directories, preflight, run lock, history, sessions, report
// header) and fails fast while any of them is incomplete; nothing is written
// to the report until every step has passed. Items are then reconciled
// strictly in work-list order, each row appended to the report and mirrored
// into the history ledger before the next item starts. Item-level problems
// never stop the run; only cancellation of the context does, and the run is
// then recorded as interrupted.
package batch
