package mesa

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Locations of the per-subject files, relative to the dataset root.
// The single verb is the subject id.
const (
	PSGPattern          = "polysomnography/annotations-events-nsrr/mesa-sleep-%04d-nsrr.xml"
	ActigraphyPattern   = "actigraphy/mesa-sleep-%04d.csv"
	RPointPattern       = "polysomnography/annotations-rpoints/mesa-sleep-%04d-rpoint.csv"
	RespFeaturePattern  = "respiration_features_raw/respiration%04d.csv"
	EDRFeaturePattern   = "edr_respiration_features_raw/edr_respiration%04d.csv"
	EDFPattern          = "mesa-sleep-%04d.edf"
	CleanDataFolder     = "clean_data"
	CleanLinetimeColumn = "linetime"
	CleanLinetimeLayout = "15:04:05"
)

// SubjectPath returns the path of a subject's file below root.
func SubjectPath(root, pattern string, id int) string {
	return filepath.Join(root, filepath.FromSlash(fmt.Sprintf(pattern, id)))
}

// A tableParser turns an open file into a table.
type tableParser func(io.Reader) (*Table, error)

func readFeatures(r io.Reader) (*Table, error) {

	rdr := NewCSVReader(r)
	rdr.IndexCol = 0
	return rdr.Read(-1)
}

func readClean(r io.Reader) (*Table, error) {

	rdr := NewCSVReader(r)
	rdr.TypeHintsName = map[string]string{CleanLinetimeColumn: TimeType}
	rdr.TimeLayout = CleanLinetimeLayout
	return rdr.Read(-1)
}

// loadSingle opens the file of subject id at root/pattern and parses
// it.  Only the open is reported as a DatasetNotFoundError; parse
// failures are returned as they are.
func loadSingle(root, pattern string, id int, parse tableParser) (*Table, error) {

	path := SubjectPath(root, pattern, id)
	f, err := openSubject(path, id)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tbl, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// loadAll parses every file in folder matching pattern, one after the
// other, keyed by subject id.  Files without a subject id in their name
// are skipped.  The first failure stops the load; the subjects read
// up to that point are returned along with the error.
func loadAll(kind, folder, pattern string, parse tableParser) (TableSet, error) {

	if _, err := os.Stat(folder); err != nil {
		return nil, err
	}

	paths, err := globSorted(folder, pattern)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{"kind": kind, "folder": folder})
	log.Infof("start reading %s data", kind)

	data := make(TableSet, len(paths))
	for _, path := range paths {
		id, ok := SubjectID(path)
		if !ok {
			log.WithField("file", filepath.Base(path)).Debug("no subject id in file name, skipping")
			continue
		}

		tbl, err := loadFile(path, parse)
		if err != nil {
			return data, err
		}
		data[id] = tbl
		log.WithFields(logrus.Fields{"subject": id, "file": filepath.Base(path)}).Debug("file read")
	}

	log.WithField("subjects", len(data)).Infof("reading %s data finished", kind)
	return data, nil
}

func loadFile(path string, parse tableParser) (*Table, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tbl, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tbl, nil
}

// LoadAllPSG reads every PSG annotation file (*.xml) in folder and
// returns the sleep stage timeline of each subject.
func LoadAllPSG(folder string) (TableSet, error) {
	return loadAll("psg", folder, "*.xml", ReadAnnotations)
}

// LoadSinglePSG reads the sleep stage timeline of one subject from the
// dataset rooted at root.
func LoadSinglePSG(root string, id int) (*Table, error) {
	return loadSingle(root, PSGPattern, id, ReadAnnotations)
}

// LoadAllActigraphy reads every actigraphy file (*.csv) in folder.
func LoadAllActigraphy(folder string) (TableSet, error) {
	return loadAll("actigraphy", folder, "*.csv", ReadCSV)
}

// LoadSingleActigraphy reads the actigraphy of one subject.
func LoadSingleActigraphy(root string, id int) (*Table, error) {
	return loadSingle(root, ActigraphyPattern, id, ReadCSV)
}

// LoadAllRPoint reads every R-point annotation file (*.csv) in folder.
func LoadAllRPoint(folder string) (TableSet, error) {
	return loadAll("r-point", folder, "*.csv", ReadCSV)
}

// LoadSingleRPoint reads the R-point annotations of one subject.
func LoadSingleRPoint(root string, id int) (*Table, error) {
	return loadSingle(root, RPointPattern, id, ReadCSV)
}

// LoadSingleRespFeatures reads the respiration features of one
// subject.  The first column of the file becomes the table index.
func LoadSingleRespFeatures(root string, id int) (*Table, error) {
	return loadSingle(root, RespFeaturePattern, id, readFeatures)
}

// LoadSingleEDRFeatures reads the ECG-derived respiration features of
// one subject.  The first column of the file becomes the table index.
func LoadSingleEDRFeatures(root string, id int) (*Table, error) {
	return loadSingle(root, EDRFeaturePattern, id, readFeatures)
}

// LoadCleanData reads the cleaned exports in root/clean_data.  The
// linetime column is parsed as a time of day.
func LoadCleanData(root string) (TableSet, error) {
	return LoadAllCleanData(filepath.Join(root, CleanDataFolder))
}

// LoadAllCleanData reads every cleaned export in folder.
func LoadAllCleanData(folder string) (TableSet, error) {
	return loadAll("clean", folder, "*.csv", readClean)
}

// LoadEDF opens the EDF recording of one subject and reads all of its
// signals.
func LoadEDF(root string, id int) (*EDFRecording, error) {

	path := SubjectPath(root, EDFPattern, id)
	f, err := openSubject(path, id)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rdr, err := NewEDFReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	rec, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
