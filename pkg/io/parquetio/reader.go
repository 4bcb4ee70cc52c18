// Package parquetio reads flat Parquet files with parquet-go/parquet-go and
// writes them with the xitongsys JSON writer. Only top-level leaf columns
// are mapped; nested groups are skipped.
package parquetio

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

// Reader yields the rows of a Parquet file, row group by row group.
type Reader struct {
	file   *os.File
	pf     *parquet.File
	schema frame.Schema
	phys   []parquet.Kind
	colOf  map[int]int // leaf column index -> schema column
	groups []parquet.RowGroup
	group  int
	rows   parquet.Rows
	buf    []parquet.Row
}

// OpenReader opens path and maps its top-level columns to frame kinds.
// Text columns whose first sampleRows values all parse as timestamps are
// read as time columns.
func OpenReader(path string, sampleRows int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	r := &Reader{file: f, pf: pf, colOf: map[int]int{}, groups: pf.RowGroups(), buf: make([]parquet.Row, 256)}
	if err := r.inferSchema(sampleRows); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("parquet %s: %w", path, err)
	}
	return r, nil
}

// ReadFile reads a whole Parquet file into a Frame.
func ReadFile(path string) (*frame.Frame, error) {
	r, err := OpenReader(path, 0)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return r.ReadAll()
}

func (r *Reader) Close() error {
	if r.rows != nil {
		_ = r.rows.Close()
	}
	return r.file.Close()
}

func (r *Reader) Schema() frame.Schema { return r.schema }

func (r *Reader) inferSchema(sampleRows int) error {
	if sampleRows <= 0 {
		sampleRows = 100
	}
	leaves := map[string]int{}
	for i, path := range r.pf.Schema().Columns() {
		if len(path) == 1 {
			leaves[path[0]] = i
		}
	}
	var text []int
	for _, fld := range r.pf.Schema().Fields() {
		leaf, ok := leaves[fld.Name()]
		if !ok || !fld.Leaf() {
			continue
		}
		pk := fld.Type().Kind()
		var k frame.Kind
		switch pk {
		case parquet.Boolean:
			k = frame.KindBool
		case parquet.Int32, parquet.Int64:
			k = frame.KindInt
		case parquet.Float, parquet.Double:
			k = frame.KindFloat
		case parquet.ByteArray, parquet.FixedLenByteArray:
			k = frame.KindString
			text = append(text, len(r.schema.Columns))
		default:
			continue
		}
		r.colOf[leaf] = len(r.schema.Columns)
		r.phys = append(r.phys, pk)
		r.schema.Columns = append(r.schema.Columns, frame.ColumnSchema{Name: fld.Name(), Type: k, Nullable: true})
	}
	if len(text) == 0 || len(r.groups) == 0 {
		return nil
	}
	counters := make([]iox.KindCounter, len(r.schema.Columns))
	rows := r.groups[0].Rows()
	defer func() { _ = rows.Close() }()
	seen := 0
	for seen < sampleRows {
		n, err := rows.ReadRows(r.buf[:min(len(r.buf), sampleRows-seen)])
		for _, row := range r.buf[:n] {
			for _, v := range row {
				ci, ok := r.colOf[v.Column()]
				if ok && !v.IsNull() && r.schema.Columns[ci].Type == frame.KindString {
					counters[ci].Add(string(v.ByteArray()))
				}
			}
		}
		seen += n
		if err == io.EOF || n == 0 {
			break
		}
		if err != nil {
			return err
		}
	}
	for _, ci := range text {
		if counters[ci].Kind() == frame.KindTime {
			r.schema.Columns[ci].Type = frame.KindTime
		}
	}
	return nil
}

// ReadAll reads every remaining row.
func (r *Reader) ReadAll() (*frame.Frame, error) {
	f, err := r.readChunk(int(r.pf.NumRows()))
	if err == io.EOF {
		return frame.NewFrame(r.schema), nil
	}
	return f, err
}

// readChunk reads up to n rows, crossing row group boundaries, and returns
// io.EOF once the file is exhausted.
func (r *Reader) readChunk(n int) (*frame.Frame, error) {
	f := frame.NewFrame(r.schema)
	for f.Rows() < n {
		if r.rows == nil {
			if r.group >= len(r.groups) {
				break
			}
			r.rows = r.groups[r.group].Rows()
			r.group++
		}
		k, err := r.rows.ReadRows(r.buf[:min(len(r.buf), n-f.Rows())])
		for _, row := range r.buf[:k] {
			r.appendRow(f, row)
		}
		if err == io.EOF || (err == nil && k == 0) {
			_ = r.rows.Close()
			r.rows = nil
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	if f.Rows() == 0 && n > 0 {
		return nil, io.EOF
	}
	return f, nil
}

func (r *Reader) appendRow(f *frame.Frame, row parquet.Row) {
	f.AppendNullRow()
	i := f.Rows() - 1
	for _, v := range row {
		ci, ok := r.colOf[v.Column()]
		if !ok || v.IsNull() {
			continue
		}
		cs := r.schema.Columns[ci]
		var x any
		switch r.phys[ci] {
		case parquet.Boolean:
			x = v.Boolean()
		case parquet.Int32:
			x = int64(v.Int32())
		case parquet.Int64:
			x = v.Int64()
		case parquet.Float:
			x = float64(v.Float())
		case parquet.Double:
			x = v.Double()
		default:
			s := string(v.ByteArray())
			if cs.Type == frame.KindTime {
				t, ok := iox.ParseTime(s)
				if !ok {
					continue
				}
				x = t
			} else {
				x = s
			}
		}
		_ = f.Column(ci).SetValue(i, x)
	}
}
