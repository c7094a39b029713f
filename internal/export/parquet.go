package export

import (
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	mesa "github.com/mad-lab-fau/mesa-data-importer"
)

// parquetType returns the schema tag fragment for the data of a
// Series.  Times are stored as text.
func parquetType(data interface{}) (string, error) {
	switch data.(type) {
	case []int64:
		return "type=INT64", nil
	case []float64:
		return "type=DOUBLE", nil
	case []string, []time.Time:
		return "type=BYTE_ARRAY, convertedtype=UTF8", nil
	default:
		return "", fmt.Errorf("no parquet type for %T", data)
	}
}

// parquetSchema returns the column metadata for a CSV style parquet
// writer.  All columns are optional so missing values can be written
// as nulls.
func parquetSchema(cols []*mesa.Series) ([]string, error) {
	names := columnNames(cols)
	md := make([]string, len(cols))
	for j, col := range cols {
		ty, err := parquetType(col.Data())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		md[j] = fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", names[j], ty)
	}
	return md, nil
}

// WriteParquet writes tbl to a SNAPPY compressed parquet file at path.
func WriteParquet(path string, tbl *mesa.Table) error {
	cols := exportColumns(tbl)
	md, err := parquetSchema(cols)
	if err != nil {
		return err
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	pw, err := writer.NewCSVWriter(md, fw, 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < tbl.NumRows(); i++ {
		// The writer keeps the record until the row group is flushed.
		rec := make([]interface{}, len(cols))
		for j, col := range cols {
			rec[j] = cellValue(col, i)
		}
		if err := pw.Write(rec); err != nil {
			fw.Close()
			return fmt.Errorf("write %s row %d: %w", path, i, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finish %s: %w", path, err)
	}
	return fw.Close()
}
