package mesa

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/sirupsen/logrus"
)

var subjectPattern = regexp.MustCompile(`\d{4}`)

// SubjectID returns the first run of four digits in the base name of
// path.  The boolean is false if there is none.
func SubjectID(path string) (string, bool) {

	id := subjectPattern.FindString(filepath.Base(path))
	return id, id != ""
}

var logger logrus.FieldLogger = logrus.StandardLogger()

// SetLogger replaces the logger used by the loaders.  A nil logger
// restores the logrus standard logger.
func SetLogger(l logrus.FieldLogger) {

	if l == nil {
		l = logrus.StandardLogger()
	}
	logger = l
}

// openSubject opens the file of one subject, translating any failure
// into a DatasetNotFoundError.
func openSubject(path string, id int) (*os.File, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, &DatasetNotFoundError{ID: id, Path: path, Err: err}
	}
	return f, nil
}

// globSorted returns the files in folder matching pattern, sorted by
// name.
func globSorted(folder, pattern string) ([]string, error) {

	paths, err := filepath.Glob(filepath.Join(folder, pattern))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	sort.Strings(paths)
	return paths, nil
}
