// Package state implements the chained key/value containers owned by layers.
//
// A Store holds own entries and an explicit parent link. Lookups check own
// entries first and fall back along the parent chain; writes always land on
// the store they are made against, so an own key shadows every inherited
// value of the same name from then on.
//
// Keys prefixed with LocalSigil ask for local-only semantics; the engine strips
// the sigil with Bare before touching a store. Keys beginning with NUL are
// reserved for the Wildcard and Resolved markers.
package state
