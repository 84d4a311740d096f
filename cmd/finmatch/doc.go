// Package main hosts the finmatch CLI entrypoint and command graph.
//
// The Cobra-based command tree loads traced outlines, maintains the SQLite
// catalog of known individuals, ranks unknown outlines against it and scaffolds
// configuration. Configuration resolution, logger construction and catalog
// access are centralized in commandContext so subcommands only deal with
// presentation.
//
// Matching logic lives in internal/match; add behaviour there first and
// surface it here through flags or commands.
package main
