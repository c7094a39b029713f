package mesa

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
)

// A Table is an ordered collection of equal-length Series with
// distinct names.  It can represent a dataset consisting of several
// variables, optionally labelled by an index Series.
type Table struct {
	columns []*Series
	byName  map[string]int
	index   *Series
	nrows   int
}

// NewTable returns a Table holding the given columns.  All columns
// must have the same length and distinct names.
func NewTable(columns ...*Series) (*Table, error) {

	tbl := &Table{
		byName: make(map[string]int, len(columns)),
	}

	for j, col := range columns {
		if j == 0 {
			tbl.nrows = col.Length()
		} else if col.Length() != tbl.nrows {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", col.Name, col.Length(), tbl.nrows)
		}
		if _, ok := tbl.byName[col.Name]; ok {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		tbl.byName[col.Name] = j
	}
	tbl.columns = columns

	return tbl, nil
}

// Columns returns the columns of the table in order.
func (tbl *Table) Columns() []*Series {
	return tbl.columns
}

// ColumnNames returns the column names in order.
func (tbl *Table) ColumnNames() []string {

	names := make([]string, len(tbl.columns))
	for j, col := range tbl.columns {
		names[j] = col.Name
	}
	return names
}

// Column returns the column with the given name, or nil if there is
// no such column.
func (tbl *Table) Column(name string) *Series {

	j, ok := tbl.byName[name]
	if !ok {
		return nil
	}
	return tbl.columns[j]
}

// NumRows returns the number of rows in the table.
func (tbl *Table) NumRows() int {
	return tbl.nrows
}

// Index returns the index Series, or nil if the table has no index.
func (tbl *Table) Index() *Series {
	return tbl.index
}

// SetIndex removes the named column from the table and uses it as the
// row index.
func (tbl *Table) SetIndex(name string) error {

	j, ok := tbl.byName[name]
	if !ok {
		return fmt.Errorf("no column named %q", name)
	}

	tbl.index = tbl.columns[j]
	tbl.columns = append(tbl.columns[:j:j], tbl.columns[j+1:]...)

	tbl.byName = make(map[string]int, len(tbl.columns))
	for k, col := range tbl.columns {
		tbl.byName[col.Name] = k
	}

	return nil
}

// AllClose returns (true, 0, 0) if all values in corresponding
// columns of the two tables are within the given tolerance.  If any
// corresponding columns differ, returns (false, j, i), where j is
// the index of a column and i is the index of a row where the two
// Series are not identical.  If the tables have different numbers of
// columns, returns (false, -1, -1).  If column j of the two tables
// have different lengths, returns (false, j, -1).  If column j of the
// two tables have different types, returns (false, j, -2).  Column
// names are not compared.
func (tbl *Table) AllClose(other *Table, tol float64) (bool, int, int) {

	if len(tbl.columns) != len(other.columns) {
		return false, -1, -1
	}

	for j := range tbl.columns {
		f, i := tbl.columns[j].AllClose(other.columns[j], tol)
		if !f {
			return false, j, i
		}
	}

	return true, 0, 0
}

// AllEqual is equivalent to AllClose with tol = 0.
func (tbl *Table) AllEqual(other *Table) (bool, int, int) {
	return tbl.AllClose(other, 0.0)
}

// Write writes the table as CSV with a header line.  If the table has
// an index it is written as the first column.
func (tbl *Table) Write(w io.Writer) error {

	cols := tbl.columns
	if tbl.index != nil {
		cols = append([]*Series{tbl.index}, cols...)
	}

	cw := csv.NewWriter(w)

	row := make([]string, len(cols))
	for j, col := range cols {
		row[j] = col.Name
	}
	if err := cw.Write(row); err != nil {
		return err
	}

	for i := 0; i < tbl.nrows; i++ {
		for j, col := range cols {
			row[j] = col.Format(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// A TableSet holds one table per subject, keyed by the four digit
// subject identifier.
type TableSet map[string]*Table

// Subjects returns the subject identifiers in sorted order.
func (ts TableSet) Subjects() []string {

	ids := make([]string, 0, len(ts))
	for id := range ts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
