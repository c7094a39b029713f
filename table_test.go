package mesa

import (
	"bytes"
	"reflect"
	"testing"
)

func TestNewTableErrors(t *testing.T) {

	a := mustSeries(t, "a", []int64{1, 2}, nil)
	b := mustSeries(t, "b", []int64{1}, nil)
	if _, err := NewTable(a, b); err == nil {
		t.Error("expected error for unequal lengths")
	}

	c := mustSeries(t, "a", []float64{1, 2}, nil)
	if _, err := NewTable(a, c); err == nil {
		t.Error("expected error for duplicate names")
	}
}

func TestTableSetIndex(t *testing.T) {

	tbl := mustTable(t,
		mustSeries(t, "", []int64{0, 1}, nil),
		mustSeries(t, "mean_br", []float64{14.5, 15}, nil),
		mustSeries(t, "std_br", []float64{1, 2}, nil))

	if err := tbl.SetIndex(""); err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(tbl.ColumnNames(), []string{"mean_br", "std_br"}) {
		t.Errorf("columns %v", tbl.ColumnNames())
	}
	if tbl.Column("std_br") != tbl.Columns()[1] {
		t.Error("name lookup not rebuilt")
	}
	if tbl.Index() == nil || tbl.Index().Length() != 2 {
		t.Error("index not set")
	}
	if err := tbl.SetIndex("nope"); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestTableWrite(t *testing.T) {

	tbl := mustTable(t,
		mustSeries(t, "idx", []int64{0, 1}, nil),
		mustSeries(t, "value", []float64{0.5, 0}, []bool{false, true}),
		mustSeries(t, "label", []string{"a,b", "c"}, nil))
	if err := tbl.SetIndex("idx"); err != nil {
		t.Fatalf("%v", err)
	}

	var buf bytes.Buffer
	if err := tbl.Write(&buf); err != nil {
		t.Fatalf("%v", err)
	}

	want := "idx,value,label\n0,0.5,\"a,b\"\n1,,c\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestTableAllClose(t *testing.T) {

	a := mustTable(t, mustSeries(t, "x", []float64{1, 2}, nil))
	b := mustTable(t, mustSeries(t, "y", []float64{1, 2.5}, nil))
	c := mustTable(t,
		mustSeries(t, "x", []float64{1, 2}, nil),
		mustSeries(t, "z", []float64{1, 2}, nil))

	if ok, j, i := a.AllEqual(b); ok || j != 0 || i != 1 {
		t.Errorf("got %v %d %d", ok, j, i)
	}
	if ok, _, _ := a.AllClose(b, 1); !ok {
		t.Error("tables should agree at tolerance 1")
	}
	if ok, j, _ := a.AllEqual(c); ok || j != -1 {
		t.Errorf("column count mismatch: got %v %d", ok, j)
	}
}

func TestTableSetSubjects(t *testing.T) {

	ts := TableSet{"0010": nil, "0002": nil, "0001": nil}
	if got := ts.Subjects(); !reflect.DeepEqual(got, []string{"0001", "0002", "0010"}) {
		t.Errorf("got %v", got)
	}
}
