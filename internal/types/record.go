package types

import "strings"

// =============================================================================
// FIELD NAMES
// =============================================================================
// Normalized field names the pipeline reads or introduces. Every name the
// merge can create on a record is listed here; nothing else is added.

const (
	FieldItem              = "item"
	FieldAltUniversalID    = "alt universal id"
	FieldUniversalID       = "universal id"
	FieldInmarOrder        = "inmar order #"
	FieldQuantity          = "quantity"
	FieldLastKnownPrice    = "last known price"
	FieldLiquidationPct    = "liquidation %"
	FieldExtendedPrice     = "extended price"
	FieldExtLiquidationPrc = "ext liquidation prc"
	FieldActualUPC         = "actual upc"
)

// =============================================================================
// RECORD
// =============================================================================

// Record maps normalized column names to cell values. Keys keep their
// insertion order so output and joins are deterministic. Header is the
// original (non-normalized) header row the record was projected through.
type Record struct {
	keys   []string
	values map[string]Cell

	Header []string
}

// NewRecord returns an empty record attached to the given original header.
func NewRecord(header []string) *Record {
	return &Record{
		values: make(map[string]Cell),
		Header: header,
	}
}

// Set stores a value. A new key is appended to the key order; an existing
// key keeps its position.
func (r *Record) Set(key string, v Cell) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under the exact key.
func (r *Record) Get(key string) (Cell, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether the exact key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Value returns the value under key, or the empty cell.
func (r *Record) Value(key string) Cell {
	return r.values[key]
}

// Lookup finds a field case-insensitively, ignoring surrounding whitespace.
// The first key in insertion order that matches wins.
func (r *Record) Lookup(name string) (Cell, bool) {
	want := NormalizeName(name)
	if v, ok := r.values[want]; ok {
		return v, true
	}
	for _, k := range r.keys {
		if strings.EqualFold(strings.TrimSpace(k), want) {
			return r.values[k], true
		}
	}
	return Empty(), false
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len is the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Clone returns a shallow copy that can be mutated independently.
func (r *Record) Clone() *Record {
	c := &Record{
		keys:   make([]string, len(r.keys)),
		values: make(map[string]Cell, len(r.values)),
		Header: r.Header,
	}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Overlay copies every field of other onto r. Fields of other win on
// collisions; new keys are appended in other's order.
func (r *Record) Overlay(other *Record) {
	for _, k := range other.keys {
		r.Set(k, other.values[k])
	}
}

// Table is the ordered list of records cleaned out of one sheet region.
type Table []*Record

// HasField reports whether the table's records carry the field. Records
// from one sheet share their key set, so the first record decides.
func (t Table) HasField(key string) bool {
	if len(t) == 0 {
		return false
	}
	return t[0].Has(key)
}
