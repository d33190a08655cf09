// Package preflight provides the readiness checks a run performs before any
// item is processed.
//
// A failing check is a setup failure: the run aborts without writing a
// report. Checks are gated by the run's toggles, so the video prober is only
// required when the video check is on.
package preflight
