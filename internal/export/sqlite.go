package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mesa "github.com/mad-lab-fau/mesa-data-importer"

	_ "modernc.org/sqlite"
)

// SubjectColumn is the leading column of every exported SQLite table.
const SubjectColumn = "subject"

// A SQLiteWriter stores tables in a SQLite database, one SQL table per
// kind of file, with a subject column identifying the rows of each
// subject.
type SQLiteWriter struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// DB returns the underlying database handle.
func (s *SQLiteWriter) DB() *sql.DB {
	return s.db
}

func (s *SQLiteWriter) Close() error {
	return s.db.Close()
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqlType(data interface{}) string {
	switch data.(type) {
	case []int64:
		return "INTEGER"
	case []float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

// ensureTable creates table if needed and adds any of the given
// columns it lacks.
func (s *SQLiteWriter) ensureTable(ctx context.Context, table string, names []string, cols []*mesa.Series) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s TEXT NOT NULL)`, quote(table), quote(SubjectColumn))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quote(table)))
	if err != nil {
		return fmt.Errorf("table info %s: %w", table, err)
	}
	have := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("table info %s: %w", table, err)
		}
		have[strings.ToLower(name)] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for j, name := range names {
		if have[strings.ToLower(name)] {
			continue
		}
		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quote(table), quote(name), sqlType(cols[j].Data()))
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, name, err)
		}
	}
	return nil
}

// WriteTable replaces the rows of subject in the table for kind with
// the contents of tbl.
func (s *SQLiteWriter) WriteTable(ctx context.Context, kind, subject string, tbl *mesa.Table) error {
	table := identifier(kind, "data")
	cols := exportColumns(tbl)
	names := columnNames(cols, SubjectColumn)

	if err := s.ensureTable(ctx, table, names, cols); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	del := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, quote(table), quote(SubjectColumn))
	if _, err := tx.ExecContext(ctx, del, subject); err != nil {
		return fmt.Errorf("clear subject %s: %w", subject, err)
	}

	qnames := make([]string, len(names)+1)
	marks := make([]string, len(names)+1)
	qnames[0], marks[0] = quote(SubjectColumn), "?"
	for j, name := range names {
		qnames[j+1], marks[j+1] = quote(name), "?"
	}
	ins := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, quote(table), strings.Join(qnames, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, ins)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]interface{}, len(cols)+1)
	args[0] = subject
	for i := 0; i < tbl.NumRows(); i++ {
		for j, col := range cols {
			args[j+1] = cellValue(col, i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
