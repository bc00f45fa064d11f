// Package journal records the outcome of every scrape call for
// operational auditing: which provider won, how deep the fallback went,
// what it cost, and why attempts failed.
//
// Records are written asynchronously through a Recorder so the scrape
// hot path never blocks on storage. Backends live in the storage
// subpackage (in-memory and SQLite); the retention subpackage prunes
// old records on a schedule; the export subpackage renders query
// results as CSV or JSON.
package journal
