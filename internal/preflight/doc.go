// Package preflight provides readiness checks for the filesystem paths and
// catalog that finmatch depends on.
//
// The CLI "finmatch check" command runs RunAll and prints one line per check.
// "finmatch match" calls CheckCatalog before loading entries so an unreadable
// or mismatched catalog is reported before any work starts.
package preflight
