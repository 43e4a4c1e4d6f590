// Package format holds the built-in asset formats: byte→data importers that
// run on pipeline workers, the converters that finish them on the owning
// thread, and the asset types consumers read out of storage.
package format

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/riftforge/assets/internal/core/asset"
)

// TableFormat parses YAML row tables: a `rows` list where every row carries
// an integer `id` plus arbitrary columns.
type TableFormat struct{}

func (TableFormat) Name() string { return "table" }

type tableFile struct {
	Rows []map[string]any `yaml:"rows"`
}

// Row is one parsed table row. Fields holds every column except `id`.
type Row struct {
	ID     int64
	Fields map[string]any
}

// TableData is the worker-side intermediate: parsed rows, not yet indexed.
type TableData struct {
	Rows []Row
}

func (TableFormat) Import(name string, raw []byte) (any, error) {
	var f tableFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	rows := make([]Row, 0, len(f.Rows))
	for i, m := range f.Rows {
		id, err := rowID(m)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		delete(m, "id")
		rows = append(rows, Row{ID: id, Fields: m})
	}
	return &TableData{Rows: rows}, nil
}

func rowID(m map[string]any) (int64, error) {
	v, ok := m["id"]
	if !ok {
		return 0, fmt.Errorf("missing id")
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("id %v is not an integer", v)
	}
}

// Table is the loaded asset: rows indexed by id.
type Table struct {
	rows  []Row
	index map[int64]int
}

// ConvertTable builds the id index. Duplicate ids are a conversion error,
// caught here rather than on the worker so the offending id lands in the
// error sink with the asset's name attached.
func ConvertTable(data any) (asset.Outcome[Table], error) {
	td, ok := data.(*TableData)
	if !ok {
		return asset.Outcome[Table]{}, fmt.Errorf("table: unexpected data %T", data)
	}
	index := make(map[int64]int, len(td.Rows))
	for i := range td.Rows {
		id := td.Rows[i].ID
		if _, dup := index[id]; dup {
			return asset.Outcome[Table]{}, fmt.Errorf("table: duplicate id %d", id)
		}
		index[id] = i
	}
	return asset.Ready(Table{rows: td.Rows, index: index}), nil
}

// Get returns the row with the given id, or nil if not present.
func (t *Table) Get(id int64) *Row {
	i, ok := t.index[id]
	if !ok {
		return nil
	}
	return &t.rows[i]
}

// Count returns the number of rows.
func (t *Table) Count() int { return len(t.rows) }

// IDs returns every row id in ascending order.
func (t *Table) IDs() []int64 {
	ids := make([]int64, 0, len(t.rows))
	for id := range t.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Int reads an integer column. YAML hands numbers over as int or int64
// depending on magnitude; both read back as int64 here.
func (r *Row) Int(key string) (int64, bool) {
	switch n := r.Fields[key].(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Float reads a float column; integer values widen.
func (r *Row) Float(key string) (float64, bool) {
	switch n := r.Fields[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Str reads a string column.
func (r *Row) Str(key string) (string, bool) {
	s, ok := r.Fields[key].(string)
	return s, ok
}

// Bool reads a boolean column.
func (r *Row) Bool(key string) (bool, bool) {
	b, ok := r.Fields[key].(bool)
	return b, ok
}
