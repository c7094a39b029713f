package mesa

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Data type names used for type hints and inferred column types.
const (
	Int64Type   = "int64"
	Float64Type = "float64"
	StringType  = "string"
	TimeType    = "time"
)

// sniffRows is the number of records inspected to infer column types.
const sniffRows = 100

// defaultNAValues are the cell contents treated as missing.
var defaultNAValues = []string{"", "NA", "N/A", "NaN", "nan", "NULL", "null"}

// A CSVReader specifies how a data set in CSV format can be read from
// a text file.
type CSVReader struct {

	// Skip this number of rows before reading the header.
	SkipRows int

	// If true, there is a header to read, otherwise default column
	// names are used.
	HasHeader bool

	// The column names, in the order that they appear in the
	// file.  Can be set by caller.
	ColumnNames []string

	// User-specified data types (maps column name to type name).
	TypeHintsName map[string]string

	// User-specified data types (indexed by column number).
	TypeHintsPos []string

	// Layout passed to time.Parse for columns of type "time".
	TimeLayout string

	// Position of the column used as the table index, or -1 for none.
	IndexCol int

	// Cell values that are read as missing.
	NAValues []string

	// The data type for each column.
	DataTypes []string

	initRun bool

	// Cached lines read while sniffing types.
	lines [][]string

	csvreader *csv.Reader

	na map[string]bool

	// Workspace
	dataArray []interface{}
	miss      [][]bool
	numRows   int
}

// NewCSVReader returns a CSVReader that reads CSV data from the given
// io.Reader, with type inference.
func NewCSVReader(r io.Reader) *CSVReader {

	rdr := new(CSVReader)
	rdr.HasHeader = true
	rdr.IndexCol = -1
	rdr.TimeLayout = time.RFC3339
	rdr.NAValues = defaultNAValues

	rdr.csvreader = csv.NewReader(r)
	rdr.csvreader.FieldsPerRecord = -1

	return rdr
}

func defaultColumnName(k int) string {
	return fmt.Sprintf("Column %d", k+1)
}

func (rdr *CSVReader) getColumnNames() {

	if rdr.HasHeader {
		rdr.ColumnNames = rdr.lines[0]
		rdr.lines = rdr.lines[1:]
		return
	}

	m := 0
	for _, line := range rdr.lines {
		if len(line) > m {
			m = len(line)
		}
	}
	rdr.ColumnNames = make([]string, m)
	for k := 0; k < m; k++ {
		rdr.ColumnNames[k] = defaultColumnName(k)
	}
}

func (rdr *CSVReader) typeHint(j int, col string) string {

	if t, ok := rdr.TypeHintsName[col]; ok {
		return t
	}
	if j < len(rdr.TypeHintsPos) && rdr.TypeHintsPos[j] != "" {
		return rdr.TypeHintsPos[j]
	}
	return ""
}

func (rdr *CSVReader) sniffTypes() {

	nInts, nFloats, nObs := rdr.countNumeric()

	rdr.DataTypes = make([]string, len(rdr.ColumnNames))
	for j, col := range rdr.ColumnNames {

		if t := rdr.typeHint(j, col); t != "" {
			rdr.DataTypes[j] = t
			continue
		}

		switch {
		case j >= len(nObs) || nObs[j] == 0:
			rdr.DataTypes[j] = StringType
		case nInts[j] == nObs[j]:
			rdr.DataTypes[j] = Int64Type
		case nFloats[j] == nObs[j]:
			rdr.DataTypes[j] = Float64Type
		default:
			rdr.DataTypes[j] = StringType
		}
	}
}

// init performs some initializations before reading data.
func (rdr *CSVReader) init() error {

	rdr.na = make(map[string]bool, len(rdr.NAValues))
	for _, v := range rdr.NAValues {
		rdr.na[v] = true
	}

	rdr.lines = make([][]string, 0, sniffRows)
	for k := 0; k < sniffRows+rdr.SkipRows; k++ {
		v, err := rdr.csvreader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		if k >= rdr.SkipRows {
			rdr.lines = append(rdr.lines, v)
		}
	}

	if len(rdr.lines) == 0 {
		return fmt.Errorf("file appears to be empty")
	}

	if rdr.ColumnNames == nil {
		rdr.getColumnNames()
	}

	if rdr.DataTypes == nil {
		rdr.sniffTypes()
	}

	for _, t := range rdr.DataTypes {
		switch t {
		case Int64Type, Float64Type, StringType, TimeType:
		default:
			return fmt.Errorf("unknown column type %q", t)
		}
	}

	rdr.dataArray = make([]interface{}, len(rdr.ColumnNames))
	rdr.miss = make([][]bool, len(rdr.ColumnNames))
	for j := range rdr.ColumnNames {
		rdr.dataArray[j] = newColumn(rdr.DataTypes[j], 0)
	}

	rdr.initRun = true

	return nil
}

func newColumn(dtype string, n int) interface{} {

	switch dtype {
	case Int64Type:
		return make([]int64, n, n+sniffRows)
	case Float64Type:
		return make([]float64, n, n+sniffRows)
	case TimeType:
		return make([]time.Time, n, n+sniffRows)
	default:
		return make([]string, n, n+sniffRows)
	}
}

// ensureWidth adds string columns when a record is wider than any
// record seen so far.  Earlier rows are missing in the new columns.
func (rdr *CSVReader) ensureWidth(w int) {

	for k := len(rdr.ColumnNames); k < w; k++ {
		rdr.ColumnNames = append(rdr.ColumnNames, defaultColumnName(k))
		rdr.DataTypes = append(rdr.DataTypes, StringType)
		rdr.dataArray = append(rdr.dataArray, newColumn(StringType, rdr.numRows))
		miss := make([]bool, rdr.numRows)
		for i := range miss {
			miss[i] = true
		}
		rdr.miss = append(rdr.miss, miss)
	}
}

// appendValue parses a cell and appends it to column j.
// logNonNumeric records a cell of a numeric column that is read as
// missing because it does not parse.
func (rdr *CSVReader) logNonNumeric(j int, cell string) {
	logger.WithFields(logrus.Fields{
		"column": rdr.ColumnNames[j],
		"row":    rdr.numRows,
		"value":  cell,
	}).Debug("non-numeric value read as missing")
}

func (rdr *CSVReader) appendValue(j int, cell string, present bool) error {

	if present && rdr.na[strings.TrimSpace(cell)] {
		present = false
	}

	switch rdr.DataTypes[j] {
	case Int64Type:
		var x int64
		if present {
			var err error
			x, err = strconv.ParseInt(strings.TrimSpace(cell), 10, 64)
			if err != nil {
				// Values past the sniffed rows may not be integral.
				f, ferr := strconv.ParseFloat(strings.TrimSpace(cell), 64)
				if ferr != nil {
					rdr.logNonNumeric(j, cell)
					present = false
				} else {
					rdr.promoteToFloat(j)
					rdr.dataArray[j] = append(rdr.dataArray[j].([]float64), f)
					rdr.miss[j] = append(rdr.miss[j], false)
					return nil
				}
			}
		}
		rdr.dataArray[j] = append(rdr.dataArray[j].([]int64), x)
	case Float64Type:
		var x float64
		if present {
			var err error
			x, err = strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				rdr.logNonNumeric(j, cell)
				present = false
			}
		}
		rdr.dataArray[j] = append(rdr.dataArray[j].([]float64), x)
	case TimeType:
		var x time.Time
		if present {
			var err error
			x, err = time.Parse(rdr.TimeLayout, strings.TrimSpace(cell))
			if err != nil {
				return fmt.Errorf("column %q row %d: %w", rdr.ColumnNames[j], rdr.numRows, err)
			}
		}
		rdr.dataArray[j] = append(rdr.dataArray[j].([]time.Time), x)
	case StringType:
		if !present {
			cell = ""
		}
		rdr.dataArray[j] = append(rdr.dataArray[j].([]string), cell)
	}

	rdr.miss[j] = append(rdr.miss[j], !present)
	return nil
}

// promoteToFloat converts an inferred integer column to float64.
func (rdr *CSVReader) promoteToFloat(j int) {

	ints := rdr.dataArray[j].([]int64)
	x := make([]float64, len(ints), len(ints)+sniffRows)
	for i, v := range ints {
		x[i] = float64(v)
	}
	rdr.dataArray[j] = x
	rdr.DataTypes[j] = Float64Type
}

// Read reads up to lines rows of data and returns the results as a
// Table.  If lines is negative the whole file is read.  Data types of
// the columns are inferred from the file.  Use type hints in the
// CSVReader struct to control the types directly.  When reading in
// chunks (lines > 0), Read returns io.EOF once all rows have been
// consumed.
func (rdr *CSVReader) Read(lines int) (*Table, error) {

	if !rdr.initRun {
		if err := rdr.init(); err != nil {
			return nil, err
		}
	}

	for j := range rdr.ColumnNames {
		rdr.dataArray[j] = newColumn(rdr.DataTypes[j], 0)
		rdr.miss[j] = make([]bool, 0, sniffRows)
	}
	rdr.numRows = 0

	for {
		if lines >= 0 && rdr.numRows >= lines {
			break
		}

		var line []string
		if len(rdr.lines) > 0 {
			line = rdr.lines[0]
			rdr.lines = rdr.lines[1:]
		} else {
			var err error
			line, err = rdr.csvreader.Read()
			if err == io.EOF {
				break
			} else if err != nil {
				return nil, err
			}
		}
		rdr.ensureWidth(len(line))

		for j := range rdr.ColumnNames {
			var cell string
			present := j < len(line)
			if present {
				cell = line[j]
			}
			if err := rdr.appendValue(j, cell, present); err != nil {
				return nil, err
			}
		}

		rdr.numRows++
	}

	if rdr.numRows == 0 && lines > 0 {
		return nil, io.EOF
	}

	cols := make([]*Series, len(rdr.dataArray))
	for j := range rdr.dataArray {
		var err error
		cols[j], err = NewSeries(rdr.ColumnNames[j], rdr.dataArray[j], rdr.miss[j])
		if err != nil {
			return nil, err
		}
	}

	tbl, err := NewTable(cols...)
	if err != nil {
		return nil, err
	}

	if rdr.IndexCol >= 0 {
		if rdr.IndexCol >= len(cols) {
			return nil, fmt.Errorf("index column %d out of range, file has %d columns", rdr.IndexCol, len(cols))
		}
		if err := tbl.SetIndex(cols[rdr.IndexCol].Name); err != nil {
			return nil, err
		}
	}

	return tbl, nil
}

// countNumeric returns, for each column of the cached lines, the
// number of values that parse as integers, the number that parse as
// floats, and the number of non-missing values.
func (rdr *CSVReader) countNumeric() ([]int, []int, []int) {

	m := 0
	for _, v := range rdr.lines {
		if len(v) > m {
			m = len(v)
		}
	}

	numInts := make([]int, m)
	numFloats := make([]int, m)
	numObs := make([]int, m)

	for _, x := range rdr.lines {
		for j, y := range x {
			y = strings.TrimSpace(y)
			if rdr.na[y] {
				continue
			}
			numObs[j]++
			if _, err := strconv.ParseInt(y, 10, 64); err == nil {
				numInts[j]++
			}
			if _, err := strconv.ParseFloat(y, 64); err == nil {
				numFloats[j]++
			}
		}
	}

	return numInts, numFloats, numObs
}

// ReadCSV reads an entire CSV stream with a header line into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	return NewCSVReader(r).Read(-1)
}
