// Package textutil provides text helpers for identifiers, damage categories
// and report file names.
//
// Identifier and category comparisons use Unicode case folding so that
// catalog data typed by different researchers ("Tip-Nick", "tip-nick")
// compares equal.
package textutil
