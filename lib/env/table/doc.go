// Package table implements the in-memory name/value table of the environment.
//
// The table is the canonical state between a load and a save: callers read and
// mutate it, the blob codec serializes it. Lookups are O(1) through an index
// map while the insertion order is kept so that re-encoding is reproducible.
//
// Every change to the content sets the dirty flag. It is purely informational
// and tells callers whether a save is pending; the table never persists
// anything on its own.
package table
