package table

import (
	"bytes"
	"github.com/ValentinKolb/envstore/lib/env/blob"
	"sort"
)

// Table is the live name/value state of the environment.
// Lookups go through an index map, the entries slice keeps insertion order
// so that encoding the same table twice yields the same payload.
//
// Thread-safety: Table is not safe for concurrent use. The environment is
// only ever touched by a single thread of control.
type Table struct {
	index   map[string]int
	entries []blob.Record
	dirty   bool
}

// New creates an empty, clean table.
func New() *Table {
	return &Table{
		index: make(map[string]int),
	}
}

// FromRecords creates a clean table from records.
// Later records overwrite earlier ones with the same name.
func FromRecords(records []blob.Record) (*Table, error) {
	t := New()
	if err := t.Replace(records); err != nil {
		return nil, err
	}
	return t, nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value of name. The boolean indicates whether it was found.
// The returned slice is a copy.
func (t *Table) Get(name string) ([]byte, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return bytes.Clone(t.entries[i].Value), true
}

// Has reports whether name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of variables.
func (t *Table) Len() int {
	return len(t.entries)
}

// All returns all records in insertion order.
func (t *Table) All() []blob.Record {
	out := make([]blob.Record, len(t.entries))
	for i, e := range t.entries {
		out[i] = blob.Record{Name: e.Name, Value: bytes.Clone(e.Value)}
	}
	return out
}

// Names returns all variable names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or overwrites name. The table becomes dirty if the value changed.
// Names must be non-empty without '=' or NUL, values must not contain NUL.
func (t *Table) Set(name string, value []byte) error {
	if err := blob.ValidateName(name); err != nil {
		return err
	}
	if err := blob.ValidateValue(name, value); err != nil {
		return err
	}

	if i, ok := t.index[name]; ok {
		if bytes.Equal(t.entries[i].Value, value) {
			return nil
		}
		t.entries[i].Value = bytes.Clone(value)
		t.dirty = true
		return nil
	}

	t.index[name] = len(t.entries)
	t.entries = append(t.entries, blob.Record{Name: name, Value: bytes.Clone(value)})
	t.dirty = true
	return nil
}

// Unset removes name if present. Removing a missing name is a no-op.
func (t *Table) Unset(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}

	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.entries); j++ {
		t.index[t.entries[j].Name] = j
	}
	t.dirty = true
}

// Replace discards the current content and loads records.
// The dirty flag is left untouched, callers decide what a replace means.
func (t *Table) Replace(records []blob.Record) error {
	for _, r := range records {
		if err := blob.ValidateName(r.Name); err != nil {
			return err
		}
		if err := blob.ValidateValue(r.Name, r.Value); err != nil {
			return err
		}
	}

	t.index = make(map[string]int, len(records))
	t.entries = make([]blob.Record, 0, len(records))
	for _, r := range records {
		if i, ok := t.index[r.Name]; ok {
			t.entries[i].Value = bytes.Clone(r.Value)
			continue
		}
		t.index[r.Name] = len(t.entries)
		t.entries = append(t.entries, blob.Record{Name: r.Name, Value: bytes.Clone(r.Value)})
	}
	return nil
}

// Clone returns a deep copy including the dirty flag.
func (t *Table) Clone() *Table {
	c := New()
	_ = c.Replace(t.entries)
	c.dirty = t.dirty
	return c
}

// --------------------------------------------------------------------------
// Dirty Tracking
// --------------------------------------------------------------------------

// MarkDirty flags the table as having unsaved changes.
func (t *Table) MarkDirty() {
	t.dirty = true
}

// IsDirty reports whether there are unsaved changes.
func (t *Table) IsDirty() bool {
	return t.dirty
}

// ClearDirty is called after the table has been persisted.
func (t *Table) ClearDirty() {
	t.dirty = false
}
