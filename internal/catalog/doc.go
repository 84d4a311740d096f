// Package catalog stores the outlines of known individuals and feeds them to
// the matcher.
//
// Store keeps one row per individual in SQLite (WAL mode, embedded schema
// with a version check). Outlines are stored as JSON point arrays next to
// their landmark indices and rebuilt through contour.New on read, so a row
// that no longer validates surfaces as an Entry with Err set instead of
// aborting a bulk load. Writers serialize on a lock file beside the database.
package catalog
