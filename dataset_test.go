package mesa

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

var testRoot = filepath.Join("test_files", "mesa")

func TestSubjectID(t *testing.T) {

	cases := map[string]string{
		"mesa-sleep-0001-nsrr.xml":          "0001",
		"/data/mesa/mesa-sleep-1234.csv":    "1234",
		"respiration0042.csv":               "0042",
		filepath.Join("2020", "mesa-x.csv"): "",
		"mesa-sleep-12345.csv":              "1234",
		filepath.Join("0099", "notes.xml"):  "",
	}

	for path, want := range cases {
		got, ok := SubjectID(path)
		if got != want || ok != (want != "") {
			t.Errorf("SubjectID(%q) = %q, %v", path, got, ok)
		}
	}
}

func TestLoadAllPSG(t *testing.T) {

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	SetLogger(logger)
	defer SetLogger(nil)

	data, err := LoadAllPSG(filepath.Join(testRoot, "polysomnography", "annotations-events-nsrr"))
	if err != nil {
		t.Fatalf("%v", err)
	}

	if !reflect.DeepEqual(data.Subjects(), []string{"0001", "0002"}) {
		t.Fatalf("subjects %v", data.Subjects())
	}
	if n := data["0001"].NumRows(); n != 6 {
		t.Errorf("subject 0001 has %d rows, want 6", n)
	}

	stages, _, err := data["0002"].Column(SleepColumn).AsStringSlice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(stages, []string{"Wake|0", "Wake|0", "Stage 3 sleep|3"}) {
		t.Errorf("subject 0002 stages %v", stages)
	}

	var started, skipped bool
	for _, e := range hook.AllEntries() {
		if e.Message == "start reading psg data" && e.Level == logrus.InfoLevel {
			started = true
		}
		if e.Data["file"] == "notes.xml" {
			skipped = true
		}
	}
	if !started || !skipped {
		t.Errorf("log entries missing: started=%v skipped=%v", started, skipped)
	}
}

func TestLoadSinglePSG(t *testing.T) {

	tbl, err := LoadSinglePSG(testRoot, 1)
	if err != nil {
		t.Fatalf("%v", err)
	}

	times, _, err := tbl.Column(TimeColumn).AsInt64Slice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(times, []int64{0, 30, 60, 90, 120, 150}) {
		t.Errorf("times %v", times)
	}
}

func TestLoadSingleNotFound(t *testing.T) {

	loaders := map[string]func(string, int) (*Table, error){
		"psg":        LoadSinglePSG,
		"actigraphy": LoadSingleActigraphy,
		"rpoint":     LoadSingleRPoint,
		"resp":       LoadSingleRespFeatures,
		"edr":        LoadSingleEDRFeatures,
	}

	for name, load := range loaders {
		_, err := load(testRoot, 42)
		if err == nil {
			t.Errorf("%s: expected an error", name)
			continue
		}
		if !strings.Contains(err.Error(), "0042") {
			t.Errorf("%s: error does not name the subject: %v", name, err)
		}
		if !errors.Is(err, ErrDatasetNotFound) || !errors.Is(err, os.ErrNotExist) {
			t.Errorf("%s: unexpected error chain: %v", name, err)
		}
		var nf *DatasetNotFoundError
		if !errors.As(err, &nf) || nf.ID != 42 {
			t.Errorf("%s: not a DatasetNotFoundError: %v", name, err)
		}
	}

	if _, err := LoadEDF(testRoot, 42); !errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("edf: got %v", err)
	}
}

func TestLoadActigraphy(t *testing.T) {

	data, err := LoadAllActigraphy(filepath.Join(testRoot, "actigraphy"))
	if err != nil {
		t.Fatalf("%v", err)
	}
	if len(data) != 2 || data["0001"].NumRows() != 3 || data["0002"].NumRows() != 2 {
		t.Fatalf("subjects %v", data.Subjects())
	}

	tbl, err := LoadSingleActigraphy(testRoot, 1)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if len(tbl.Columns()) != 9 {
		t.Errorf("columns %v", tbl.ColumnNames())
	}

	light, miss, err := tbl.Column("whitelight").AsFloat64Slice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if light[2] != 1.5 || !miss[1] {
		t.Errorf("whitelight %v %v", light, miss)
	}

	if _, _, err := tbl.Column("activity").AsInt64Slice(); err != nil {
		t.Errorf("activity: %v", err)
	}
	if _, _, err := tbl.Column("interval").AsStringSlice(); err != nil {
		t.Errorf("interval: %v", err)
	}
}

func TestLoadRPoint(t *testing.T) {

	data, err := LoadAllRPoint(filepath.Join(testRoot, "polysomnography", "annotations-rpoints"))
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(data.Subjects(), []string{"0001"}) {
		t.Fatalf("subjects %v", data.Subjects())
	}

	tbl, err := LoadSingleRPoint(testRoot, 1)
	if err != nil {
		t.Fatalf("%v", err)
	}

	sec, _, err := tbl.Column("seconds").AsFloat64Slice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if sec[2] != 30.82421875 {
		t.Errorf("seconds %v", sec)
	}
}

func TestLoadFeatures(t *testing.T) {

	resp, err := LoadSingleRespFeatures(testRoot, 1)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(resp.ColumnNames(), []string{"mean_br", "std_br", "mean_ibi"}) {
		t.Errorf("resp columns %v", resp.ColumnNames())
	}
	if idx, _, err := resp.Index().AsInt64Slice(); err != nil || !reflect.DeepEqual(idx, []int64{0, 1, 2}) {
		t.Errorf("resp index %v %v", idx, err)
	}
	if !resp.Column("std_br").IsMissing(2) {
		t.Error("blank std_br not missing")
	}

	edr, err := LoadSingleEDRFeatures(testRoot, 1)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(edr.ColumnNames(), []string{"edr_mean_br", "edr_std_br"}) || edr.NumRows() != 2 {
		t.Errorf("edr columns %v", edr.ColumnNames())
	}
}

func TestLoadCleanData(t *testing.T) {

	data, err := LoadCleanData(testRoot)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(data.Subjects(), []string{"0001", "0003"}) {
		t.Fatalf("subjects %v", data.Subjects())
	}

	col := data["0003"].Column(CleanLinetimeColumn)
	times, _, err := col.AsTimeSlice()
	if err != nil {
		t.Fatalf("%v", err)
	}
	if times[0].Hour() != 23 || times[1].Hour() != 0 || col.Format(0) != "23:59:30" {
		t.Errorf("linetime %v", times)
	}
}

func TestLoadAllCleanData(t *testing.T) {

	data, err := LoadAllCleanData(filepath.Join(testRoot, CleanDataFolder))
	if err != nil {
		t.Fatalf("%v", err)
	}
	if !reflect.DeepEqual(data.Subjects(), []string{"0001", "0003"}) {
		t.Errorf("subjects %v", data.Subjects())
	}
	if data["0001"].Column(CleanLinetimeColumn) == nil {
		t.Error("linetime column missing")
	}
}

func TestLoadAllMissingFolder(t *testing.T) {

	_, err := LoadAllActigraphy(filepath.Join(testRoot, "no-such-folder"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v", err)
	}
}

// A file that cannot be parsed stops the load.  Subjects read before
// it are kept.
func TestLoadAllStopsAtFirstError(t *testing.T) {

	dir := t.TempDir()
	files := map[string]string{
		"mesa-sleep-0001.csv": "a,b\n1,2\n",
		"mesa-sleep-0002.csv": "",
		"mesa-sleep-0003.csv": "a,b\n3,4\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%v", err)
		}
	}

	data, err := LoadAllActigraphy(dir)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "mesa-sleep-0002.csv") {
		t.Errorf("error does not name the file: %v", err)
	}
	if !reflect.DeepEqual(data.Subjects(), []string{"0001"}) {
		t.Errorf("partial result %v", data.Subjects())
	}
}

func TestLoadSingleParseError(t *testing.T) {

	root := t.TempDir()
	path := SubjectPath(root, PSGPattern, 7)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("%v", err)
	}
	if err := os.WriteFile(path, []byte("<PSGAnnotation>"), 0o644); err != nil {
		t.Fatalf("%v", err)
	}

	_, err := LoadSinglePSG(root, 7)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrDatasetNotFound) {
		t.Errorf("parse failure reported as missing dataset: %v", err)
	}
}
