package mesa

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNewSeriesErrors(t *testing.T) {

	if _, err := NewSeries("x", []int{1, 2}, nil); err == nil {
		t.Error("expected error for []int data")
	}
	if _, err := NewSeries("x", []float64{1, 2}, []bool{false}); err == nil {
		t.Error("expected error for short missing mask")
	}
}

func TestSeriesFormat(t *testing.T) {

	tm := time.Date(0, 1, 1, 23, 59, 30, 0, time.UTC)
	cases := []struct {
		data interface{}
		want []string
	}{
		{[]float64{1.5, 2, 0}, []string{"1.5", "2", ""}},
		{[]int64{7, -3, 0}, []string{"7", "-3", ""}},
		{[]string{"a", "b", "c"}, []string{"a", "b", ""}},
		{[]time.Time{tm, tm, tm}, []string{"23:59:30", "23:59:30", ""}},
	}

	for _, c := range cases {
		s := mustSeries(t, "x", c.data, []bool{false, false, true})
		for i, want := range c.want {
			if got := s.Format(i); got != want {
				t.Errorf("%T: Format(%d) = %q, want %q", c.data, i, got, want)
			}
		}
	}
}

func TestSeriesAllClose(t *testing.T) {

	a := mustSeries(t, "a", []float64{1, 2, 3}, []bool{false, true, false})
	b := mustSeries(t, "b", []float64{1, 99, 3.001}, []bool{false, true, false})

	if ok, _ := a.AllEqual(b); ok {
		t.Error("series should differ at tolerance 0")
	}
	if ok, i := a.AllClose(b, 0.01); !ok {
		t.Errorf("series should agree at tolerance 0.01, differ at %d", i)
	}

	c := mustSeries(t, "c", []float64{1, 2, 3}, nil)
	if ok, i := a.AllEqual(c); ok || i != 1 {
		t.Errorf("missing mismatch: got %v, %d", ok, i)
	}

	d := mustSeries(t, "d", []int64{1, 2, 3}, nil)
	if ok, i := c.AllEqual(d); ok || i != -2 {
		t.Errorf("type mismatch: got %v, %d", ok, i)
	}

	e := mustSeries(t, "e", []float64{1, 2}, nil)
	if ok, i := c.AllEqual(e); ok || i != -1 {
		t.Errorf("length mismatch: got %v, %d", ok, i)
	}
}

func TestForceNumeric(t *testing.T) {

	s := mustSeries(t, "x", []string{"1.5", "abc", "", "4"}, []bool{false, false, true, false})
	f := s.ForceNumeric()

	expected := mustSeries(t, "x", []float64{1.5, 0, 0, 4}, []bool{false, true, true, false})
	if ok, i := f.AllEqual(expected); !ok {
		t.Errorf("differ at %d", i)
	}
	if s.IsMissing(1) {
		t.Error("ForceNumeric modified the original mask")
	}

	n := mustSeries(t, "n", []int64{3, 4}, nil).ForceNumeric()
	if x, _, err := n.AsFloat64Slice(); err != nil || x[1] != 4 {
		t.Errorf("int64 upcast: %v %v", x, err)
	}
}

func TestToString(t *testing.T) {

	s := mustSeries(t, "x", []int64{1, 2}, []bool{false, true}).ToString()
	x, miss, err := s.AsStringSlice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if x[0] != "1" || !miss[1] {
		t.Errorf("got %v %v", x, miss)
	}
}

func TestSeriesWrite(t *testing.T) {

	s := mustSeries(t, "stage", []string{"Wake|0", "REM sleep|5"}, []bool{false, true})

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		t.Fatalf("%v", err)
	}

	want := "Name: stage\nType: string\n0:  Wake|0\n1:\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestAsSliceErrors(t *testing.T) {

	s := mustSeries(t, "x", []string{"a"}, nil)
	if _, _, err := s.AsFloat64Slice(); err == nil || !strings.Contains(err.Error(), "[]string") {
		t.Errorf("got %v", err)
	}
	if _, _, err := s.AsInt64Slice(); err == nil {
		t.Error("expected error")
	}
	if _, _, err := s.AsTimeSlice(); err == nil {
		t.Error("expected error")
	}
}
