package storage

import "sort"

// Table maps a position to the value of each move seen from it.
// It is owned by a single game session and is not safe for concurrent use.
type Table struct {
	values map[PositionKey]map[MoveID]float64
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{values: make(map[PositionKey]map[MoveID]float64)}
}

// GetOrInit returns the move values for key. The first time a key is seen an
// entry is created with every id valued 0 and created is true. Existing
// entries are returned untouched: ids missing from them are not added and ids
// no longer legal are not removed.
func (t *Table) GetOrInit(key PositionKey, ids []MoveID) (values map[MoveID]float64, created bool) {
	if values, ok := t.values[key]; ok {
		return values, false
	}
	values = make(map[MoveID]float64, len(ids))
	for _, id := range ids {
		values[id] = 0
	}
	t.values[key] = values
	return values, true
}

// Lookup returns the move values stored for key.
func (t *Table) Lookup(key PositionKey) (map[MoveID]float64, bool) {
	values, ok := t.values[key]
	return values, ok
}

// Value returns the stored value of id at key.
func (t *Table) Value(key PositionKey, id MoveID) (float64, bool) {
	values, ok := t.values[key]
	if !ok {
		return 0, false
	}
	v, ok := values[id]
	return v, ok
}

// Set stores v for id at key, creating the position entry if needed.
func (t *Table) Set(key PositionKey, id MoveID, v float64) {
	values, ok := t.values[key]
	if !ok {
		values = make(map[MoveID]float64)
		t.values[key] = values
	}
	values[id] = v
}

// Len returns the number of positions in the table
func (t *Table) Len() int {
	return len(t.values)
}

// Keys returns all position keys in sorted order
func (t *Table) Keys() []PositionKey {
	keys := make([]PositionKey, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Stats computes summary statistics over every stored value
func (t *Table) Stats() Stats {
	stats := Stats{Positions: len(t.values)}
	first := true
	for _, values := range t.values {
		for _, v := range values {
			stats.Moves++
			if v != 0 {
				stats.NonZeroEntries++
			}
			if first || v < stats.MinValue {
				stats.MinValue = v
			}
			if first || v > stats.MaxValue {
				stats.MaxValue = v
			}
			first = false
		}
	}
	return stats
}

// Equal reports whether t and other hold the same keys and values.
func (t *Table) Equal(other *Table) bool {
	if len(t.values) != len(other.values) {
		return false
	}
	for key, values := range t.values {
		otherValues, ok := other.values[key]
		if !ok || len(values) != len(otherValues) {
			return false
		}
		for id, v := range values {
			ov, ok := otherValues[id]
			if !ok || ov != v {
				return false
			}
		}
	}
	return true
}

func (t *Table) clone() *Table {
	c := &Table{values: make(map[PositionKey]map[MoveID]float64, len(t.values))}
	for key, values := range t.values {
		inner := make(map[MoveID]float64, len(values))
		for id, v := range values {
			inner[id] = v
		}
		c.values[key] = inner
	}
	return c
}
