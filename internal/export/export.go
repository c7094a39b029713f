// Package export writes loaded MESA tables to CSV files, parquet
// files or a SQLite database.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	mesa "github.com/mad-lab-fau/mesa-data-importer"
	"github.com/mad-lab-fau/mesa-data-importer/internal/config"
)

// An Exporter writes the tables of one kind of file (psg, actigraphy,
// ...) to Out in the given Format.  For csv and parquet Out is a
// directory receiving one file per subject; for sqlite it is the
// database file, with one table per kind.
type Exporter struct {
	Format string
	Out    string
	Log    logrus.FieldLogger
}

// New returns an Exporter for the output settings in cfg.
func New(cfg config.Config, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{Format: cfg.Format, Out: cfg.Output, Log: log}
}

// Export writes every subject of data in sorted subject order.
func (e *Exporter) Export(ctx context.Context, kind string, data mesa.TableSet) error {
	log := e.Log.WithFields(logrus.Fields{"kind": kind, "format": e.Format, "out": e.Out})

	switch e.Format {
	case config.FormatSQLite:
		db, err := OpenSQLite(e.Out)
		if err != nil {
			return err
		}
		defer db.Close()
		for _, id := range data.Subjects() {
			if err := db.WriteTable(ctx, kind, id, data[id]); err != nil {
				return fmt.Errorf("subject %s: %w", id, err)
			}
			log.WithField("subject", id).Debug("table written")
		}
	case config.FormatCSV, config.FormatParquet:
		if err := os.MkdirAll(e.Out, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		for _, id := range data.Subjects() {
			path := filepath.Join(e.Out, fmt.Sprintf("%s-%s.%s", kind, id, e.Format))
			var err error
			if e.Format == config.FormatCSV {
				err = WriteCSVFile(path, data[id])
			} else {
				err = WriteParquet(path, data[id])
			}
			if err != nil {
				return fmt.Errorf("subject %s: %w", id, err)
			}
			log.WithFields(logrus.Fields{"subject": id, "file": path}).Debug("table written")
		}
	default:
		return fmt.Errorf("unknown export format %q", e.Format)
	}

	log.WithField("subjects", len(data)).Info("export finished")
	return nil
}

// WriteCSVFile writes tbl as CSV to path.
func WriteCSVFile(path string, tbl *mesa.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tbl.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// identifier turns a column or kind name into a name usable by
// parquet and SQL: letters, digits and underscores, not starting with
// a digit.  Empty names become fallback.
func identifier(name, fallback string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	s := b.String()
	if s == "" {
		return fallback
	}
	if unicode.IsDigit(rune(s[0])) {
		s = "_" + s
	}
	return s
}

// exportColumns returns the columns to write, the index first.
func exportColumns(tbl *mesa.Table) []*mesa.Series {
	cols := tbl.Columns()
	if idx := tbl.Index(); idx != nil {
		cols = append([]*mesa.Series{idx}, cols...)
	}
	return cols
}

// cellValue returns row i of col as int64, float64 or string, or nil
// if it is missing.  Times are written as text.
func cellValue(col *mesa.Series, i int) interface{} {
	if col.IsMissing(i) {
		return nil
	}
	switch x := col.Data().(type) {
	case []int64:
		return x[i]
	case []float64:
		return x[i]
	case []string:
		return x[i]
	case []time.Time:
		return col.Format(i)
	}
	return nil
}

// columnNames returns unique identifiers for cols.  Names in reserved
// are taken already and get a trailing underscore like any other
// clash.
func columnNames(cols []*mesa.Series, reserved ...string) []string {
	names := make([]string, len(cols))
	seen := make(map[string]bool, len(cols)+len(reserved))
	for _, name := range reserved {
		seen[strings.ToLower(name)] = true
	}
	for j, col := range cols {
		name := identifier(col.Name, fmt.Sprintf("column_%d", j+1))
		for seen[strings.ToLower(name)] {
			name += "_"
		}
		seen[strings.ToLower(name)] = true
		names[j] = name
	}
	return names
}
