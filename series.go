package mesa

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// A Series is a fixed-type one-dimensional sequence of data
// values, with an optional mask for missing values.
type Series struct {

	// A name describing what is in this series.
	Name string

	// The length of the series.
	length int

	// The data, one of []float64, []int64, []string or []time.Time.
	data interface{}

	// Indicators that data values are missing.  If nil, there are
	// no missing values.
	missing []bool
}

// ilen returns the length of a slice, held in an interface value.
// If the interface does not hold a slice of a known type, an error
// is returned.
func ilen(data interface{}) (int, error) {

	switch x := data.(type) {
	case []float64:
		return len(x), nil
	case []int64:
		return len(x), nil
	case []string:
		return len(x), nil
	case []time.Time:
		return len(x), nil
	default:
		return 0, fmt.Errorf("unsupported series data type %T", data)
	}
}

// NewSeries returns a new Series value with the given name and data
// contents.  The data slice parameter is not copied.
func NewSeries(name string, data interface{}, missing []bool) (*Series, error) {

	length, err := ilen(data)
	if err != nil {
		return nil, err
	}

	if missing != nil && len(missing) != length {
		return nil, fmt.Errorf("series %q: missing mask has length %d, data has length %d",
			name, len(missing), length)
	}

	ser := Series{
		Name:    name,
		length:  length,
		data:    data,
		missing: missing,
	}

	return &ser, nil
}

// Length returns the number of elements in a Series.
func (ser *Series) Length() int {
	return ser.length
}

// Data returns the data component of the Series.
func (ser *Series) Data() interface{} {
	return ser.data
}

// Missing returns the array of missing value indicators.
func (ser *Series) Missing() []bool {
	return ser.missing
}

// IsMissing reports whether position i holds a missing value.
func (ser *Series) IsMissing(i int) bool {
	return ser.missing != nil && ser.missing[i]
}

// CountMissing returns the number of missing values in the Series.
func (ser *Series) CountMissing() int {

	m := 0
	for _, b := range ser.missing {
		if b {
			m++
		}
	}

	return m
}

// Format returns the text form of element i, or the empty string if
// it is missing.  Times are written as a time of day, which is all the
// clean exports carry.
func (ser *Series) Format(i int) string {

	if ser.IsMissing(i) {
		return ""
	}

	switch x := ser.data.(type) {
	case []float64:
		return strconv.FormatFloat(x[i], 'f', -1, 64)
	case []int64:
		return strconv.FormatInt(x[i], 10)
	case []string:
		return x[i]
	case []time.Time:
		return x[i].Format("15:04:05")
	}

	return ""
}

// Write writes the entire Series to the given writer.
func (ser *Series) Write(w io.Writer) error {
	return ser.WriteRange(w, 0, ser.length)
}

// WriteRange writes the given subinterval of the Series to the given writer.
func (ser *Series) WriteRange(w io.Writer, first, last int) error {

	if _, err := fmt.Fprintf(w, "Name: %s\n", ser.Name); err != nil {
		return err
	}
	ty := fmt.Sprintf("%T", ser.data)
	if _, err := fmt.Fprintf(w, "Type: %s\n", ty[2:]); err != nil {
		return err
	}

	for j := first; j < last; j++ {
		var err error
		if ser.IsMissing(j) {
			_, err = fmt.Fprintf(w, "%d:\n", j)
		} else {
			_, err = fmt.Fprintf(w, "%d:  %s\n", j, ser.Format(j))
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// AllClose returns true, 0 if the Series is within tol of the other
// series.  If the Series have different lengths, AllClose returns
// false, -1.  If the Series have different types, AllClose returns
// false, -2.  If the Series have the same type and the same length
// but are not equal, AllClose returns false, j, where j is the index
// of the first position where the two series differ.
func (ser *Series) AllClose(other *Series, tol float64) (bool, int) {

	if ser.length != other.length {
		return false, -1
	}

	// 0: inconsistent, 1: both present, 2: both missing
	cmiss := func(j int) int {
		f1 := !ser.IsMissing(j)
		f2 := !other.IsMissing(j)
		if f1 != f2 {
			return 0
		} else if f1 {
			return 1
		}
		return 2
	}

	switch u := ser.data.(type) {
	case []float64:
		v, ok := other.data.([]float64)
		if !ok {
			return false, -2
		}
		for i := range u {
			c := cmiss(i)
			if c == 0 || (c == 1 && math.Abs(u[i]-v[i]) > tol) {
				return false, i
			}
		}
	case []int64:
		v, ok := other.data.([]int64)
		if !ok {
			return false, -2
		}
		for i := range u {
			c := cmiss(i)
			if c == 0 || (c == 1 && math.Abs(float64(u[i]-v[i])) > tol) {
				return false, i
			}
		}
	case []string:
		v, ok := other.data.([]string)
		if !ok {
			return false, -2
		}
		for i := range u {
			c := cmiss(i)
			if c == 0 || (c == 1 && u[i] != v[i]) {
				return false, i
			}
		}
	case []time.Time:
		v, ok := other.data.([]time.Time)
		if !ok {
			return false, -2
		}
		for i := range u {
			c := cmiss(i)
			if c == 0 || (c == 1 && !u[i].Equal(v[i])) {
				return false, i
			}
		}
	}

	return true, 0
}

// AllEqual is equivalent to AllClose with tol=0.
func (ser *Series) AllEqual(other *Series) (bool, int) {
	return ser.AllClose(other, 0.0)
}

// copyMissing returns a fresh mask of the series length, copied from
// the existing mask if there is one.
func (ser *Series) copyMissing() []bool {

	cmiss := make([]bool, ser.length)
	if ser.missing != nil {
		copy(cmiss, ser.missing)
	}
	return cmiss
}

// ForceNumeric converts string values to float64 values, creating
// missing values where the conversion is not possible.  Integer data
// is upcast to float64.  Other data is returned unchanged.
func (ser *Series) ForceNumeric() *Series {

	cmiss := ser.copyMissing()

	switch y := ser.data.(type) {
	default:
		return ser
	case []int64:
		x := make([]float64, ser.length)
		for i, v := range y {
			x[i] = float64(v)
		}
		s, _ := NewSeries(ser.Name, x, cmiss)
		return s
	case []string:
		x := make([]float64, ser.length)
		for i := range y {
			if cmiss[i] {
				continue
			}
			v, err := strconv.ParseFloat(y[i], 64)
			if err != nil {
				cmiss[i] = true
			} else {
				x[i] = v
			}
		}
		s, _ := NewSeries(ser.Name, x, cmiss)
		return s
	}
}

// ToString returns a Series with string values, derived
// from the given series.
func (ser *Series) ToString() *Series {

	if _, ok := ser.data.([]string); ok {
		return ser
	}

	x := make([]string, ser.length)
	for i := range x {
		x[i] = ser.Format(i)
	}
	s, _ := NewSeries(ser.Name, x, ser.copyMissing())
	return s
}

// AsFloat64Slice returns the data of the series as a float64 slice,
// and a boolean slice for the missing value indicators.
func (ser *Series) AsFloat64Slice() ([]float64, []bool, error) {

	v, ok := ser.data.([]float64)
	if !ok {
		return nil, nil, fmt.Errorf("can't convert %T to []float64", ser.data)
	}

	return v, ser.missing, nil
}

// AsInt64Slice returns the data of the series as an int64 slice,
// and a boolean slice for the missing value indicators.
func (ser *Series) AsInt64Slice() ([]int64, []bool, error) {

	v, ok := ser.data.([]int64)
	if !ok {
		return nil, nil, fmt.Errorf("can't convert %T to []int64", ser.data)
	}

	return v, ser.missing, nil
}

// AsStringSlice returns the series data as slices for the values,
// and the missing data indicators.
func (ser *Series) AsStringSlice() ([]string, []bool, error) {

	v, ok := ser.data.([]string)
	if !ok {
		return nil, nil, fmt.Errorf("can't convert %T to []string", ser.data)
	}

	return v, ser.missing, nil
}

// AsTimeSlice returns the series data as a time.Time slice, and the
// missing data indicators.
func (ser *Series) AsTimeSlice() ([]time.Time, []bool, error) {

	v, ok := ser.data.([]time.Time)
	if !ok {
		return nil, nil, fmt.Errorf("can't convert %T to []time.Time", ser.data)
	}

	return v, ser.missing, nil
}
