// Package match ranks a catalog of known fin outlines against one unknown
// outline.
//
// A Matcher fans catalog entries out to a fixed pool of workers. Each worker
// normalizes the query and the entry into the shared canonical frame
// (internal/normalize), aligns them (internal/align) and keeps its results
// locally; the run merges them once every worker has exited and sorts by
// distance with catalog position breaking ties, so the output does not depend
// on the worker count.
//
// Entries that cannot be scored never abort a run. They are reported in
// Run.Excluded with a stable reason string and logged as warnings. An invalid
// query fails the whole run before any entry is read.
//
// Configuration dependencies (the [matching] table):
//   - workers, samples, band, cost_function, curvature_weight
//   - worst_case_penalty for degenerate edges
//   - registration, trim_fraction for the leading-edge start
//   - anchor, size_measure, canonical_size for the canonical frame
//   - categories restricts the run to the listed damage categories
package match
