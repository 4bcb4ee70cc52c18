package parquetio

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

type schemaField struct {
	Tag string `json:"Tag"`
}

type schemaDoc struct {
	Tag    string        `json:"Tag"`
	Fields []schemaField `json:"Fields"`
}

// schemaJSON renders s as a JSONWriter schema. Every column is optional;
// timestamps are stored as RFC 3339 text.
func schemaJSON(s frame.Schema) (string, error) {
	doc := schemaDoc{Tag: "name=schema, repetitiontype=REQUIRED"}
	for _, cs := range s.Columns {
		if strings.ContainsAny(cs.Name, ",=") {
			return "", fmt.Errorf("parquet: column name %q cannot contain ',' or '='", cs.Name)
		}
		tag := "name=" + cs.Name + ", repetitiontype=OPTIONAL, type="
		switch cs.Type {
		case frame.KindFloat:
			tag += "DOUBLE"
		case frame.KindInt:
			tag += "INT64"
		case frame.KindBool:
			tag += "BOOLEAN"
		default:
			tag += "BYTE_ARRAY, convertedtype=UTF8"
		}
		doc.Fields = append(doc.Fields, schemaField{Tag: tag})
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// rowJSON encodes row r of f as a JSON object; null cells are omitted.
func rowJSON(f *frame.Frame, r int) (string, error) {
	rec := make(map[string]any, f.Cols())
	for c, name := range f.Names() {
		switch v := f.Column(c).Value(r).(type) {
		case nil:
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				rec[name] = v
			}
		case time.Time:
			rec[name] = v.Format(time.RFC3339)
		default:
			rec[name] = v
		}
	}
	b, err := json.Marshal(rec)
	return string(b), err
}

type Writer struct {
	file source.ParquetFile
	w    *writer.JSONWriter
	cols int
}

// NewWriter creates path and prepares a writer for frames with schema s.
func NewWriter(path string, s frame.Schema) (*Writer, error) {
	js, err := schemaJSON(s)
	if err != nil {
		return nil, err
	}
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, err
	}
	w, err := writer.NewJSONWriter(js, fw, 4)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("parquet writer init: %w", err)
	}
	return &Writer{file: fw, w: w, cols: len(s.Columns)}, nil
}

// Write appends the rows of f.
func (w *Writer) Write(f *frame.Frame) error {
	if f.Cols() != w.cols {
		return fmt.Errorf("parquet: chunk has %d columns, schema has %d", f.Cols(), w.cols)
	}
	for r := 0; r < f.Rows(); r++ {
		rec, err := rowJSON(f, r)
		if err != nil {
			return err
		}
		if err := w.w.Write(rec); err != nil {
			return fmt.Errorf("parquet write row %d: %w", r, err)
		}
	}
	return nil
}

// Close flushes the footer and closes the file.
func (w *Writer) Close() error {
	if err := w.w.WriteStop(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteAll writes f to a new Parquet file.
func WriteAll(path string, f *frame.Frame) error {
	w, err := NewWriter(path, f.Schema())
	if err != nil {
		return err
	}
	if err := w.Write(f); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
