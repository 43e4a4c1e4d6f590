package format_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftforge/assets/internal/format"
)

const itemTable = `
rows:
  - id: 40001
    name: short sword
    weight: 3.5
    stackable: false
    tags: [weapon, starter]
  - id: 40002
    name: healing potion
    weight: 1
    stackable: true
`

func importTable(t *testing.T, src string) *format.TableData {
	t.Helper()
	data, err := format.TableFormat{}.Import("items.yaml", []byte(src))
	require.NoError(t, err)
	td, ok := data.(*format.TableData)
	require.True(t, ok)
	return td
}

func TestTableImportParsesRows(t *testing.T) {
	t.Parallel()

	td := importTable(t, itemTable)

	want := []format.Row{
		{ID: 40001, Fields: map[string]any{
			"name":      "short sword",
			"weight":    3.5,
			"stackable": false,
			"tags":      []any{"weapon", "starter"},
		}},
		{ID: 40002, Fields: map[string]any{
			"name":      "healing potion",
			"weight":    1,
			"stackable": true,
		}},
	}
	if diff := cmp.Diff(want, td.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTableConvertIndexesByID(t *testing.T) {
	t.Parallel()

	out, err := format.ConvertTable(importTable(t, itemTable))
	require.NoError(t, err)
	tbl, ready := out.Value()
	require.True(t, ready)

	assert.Equal(t, 2, tbl.Count())
	assert.Equal(t, []int64{40001, 40002}, tbl.IDs())

	row := tbl.Get(40002)
	require.NotNil(t, row)
	name, ok := row.Str("name")
	require.True(t, ok)
	assert.Equal(t, "healing potion", name)

	stackable, ok := row.Bool("stackable")
	require.True(t, ok)
	assert.True(t, stackable)

	weight, ok := row.Float("weight")
	require.True(t, ok)
	assert.Equal(t, 1.0, weight, "integer column widens on Float read")

	_, ok = row.Int("name")
	assert.False(t, ok, "wrong-typed read reports absence")

	assert.Nil(t, tbl.Get(99999))
}

func TestTableImportRejectsRowWithoutID(t *testing.T) {
	t.Parallel()

	_, err := format.TableFormat{}.Import("items.yaml", []byte("rows:\n  - name: stray\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing id")
}

func TestTableImportRejectsMalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := format.TableFormat{}.Import("items.yaml", []byte("rows: ["))
	assert.Error(t, err)
}

func TestTableConvertRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	td := importTable(t, "rows:\n  - id: 7\n  - id: 7\n")
	_, err := format.ConvertTable(td)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id 7")
}

func TestTableConvertRejectsForeignData(t *testing.T) {
	t.Parallel()

	_, err := format.ConvertTable("not table data")
	assert.Error(t, err)
}
