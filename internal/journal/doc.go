// Package journal persists engine activity to SQLite.
//
// A journal holds runs; each run is the ordered list of engine.Entry values
// recorded while one scenario executed. Entries are append-only and keyed by
// (run, seq), so re-recording the same run is a no-op.
package journal
