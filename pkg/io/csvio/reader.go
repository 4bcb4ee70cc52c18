package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

type ReaderOptions struct {
	HasHeader  bool
	Delimiter  rune // 0 = sniff, default ','
	SampleRows int  // for inference; default 100
	Strict     bool // if true, error on short/long records
}

type Reader struct {
	r   *csv.Reader
	opt ReaderOptions
	buf [][]string
	// repair counters
	shortRecords int
	longRecords  int
}

// Open opens a CSV file ("-" for stdin, gzip detected) and returns a Reader
// and the closer of the underlying stream.
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	br := bufio.NewReader(rc)
	if opt.Delimiter == 0 {
		sample, _ := br.Peek(4096)
		opt.Delimiter = sniffDelimiter(sample)
	}
	r := NewReaderFrom(br, opt)
	return r, rc, nil
}

// NewReaderFrom constructs a Reader from an arbitrary io.Reader (stdin, pipe).
func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	rr := csv.NewReader(r)
	if opt.Delimiter != 0 {
		rr.Comma = opt.Delimiter
	}
	rr.LazyQuotes = true
	rr.FieldsPerRecord = -1
	return &Reader{r: rr, opt: opt}
}

// ReadFile reads a whole CSV file into a Frame.
func ReadFile(path string, opt ReaderOptions) (*frame.Frame, error) {
	r, c, err := Open(path, opt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		return nil, fmt.Errorf("csv %s: %w", path, err)
	}
	return r.ReadAll(schema)
}

// InferSchema reads the header (if present) and samples rows to determine
// column kinds. Sampled rows are kept for ReadAll.
func (r *Reader) InferSchema() (frame.Schema, []string, error) {
	rec, err := r.r.Read()
	if err != nil {
		return frame.Schema{}, nil, err
	}
	var names []string
	var sample [][]string
	if r.opt.HasHeader {
		names = make([]string, len(rec))
		for i := range rec {
			names[i] = strings.ToValidUTF8(strings.TrimSpace(rec[i]), "?")
		}
		if len(names) > 0 {
			names[0] = strings.TrimPrefix(names[0], "\ufeff")
		}
	} else {
		names = make([]string, len(rec))
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
		sample = append(sample, rec)
	}

	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	for len(sample) < max {
		rr, err := r.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frame.Schema{}, nil, err
		}
		sample = append(sample, rr)
	}

	counters := make([]iox.KindCounter, len(names))
	for _, row := range sample {
		for c := range counters {
			if c < len(row) {
				counters[c].Add(row[c])
			}
		}
	}
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(names))}
	for i := range names {
		schema.Columns[i] = frame.ColumnSchema{Name: names[i], Type: counters[i].Kind(), Nullable: true}
	}
	r.buf = append(r.buf, sample...)
	return schema, names, nil
}

// next returns the next record, draining the inference buffer first.
func (r *Reader) next() ([]string, error) {
	if len(r.buf) > 0 {
		rec := r.buf[0]
		r.buf = r.buf[1:]
		return rec, nil
	}
	return r.r.Read()
}

// ReadAll loads the rest of the CSV into a Frame.
func (r *Reader) ReadAll(schema frame.Schema) (*frame.Frame, error) {
	f := frame.NewFrame(schema)
	for {
		rec, err := r.next()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		if err := r.appendRecord(f, schema, rec); err != nil {
			return nil, err
		}
	}
}

func (r *Reader) appendRecord(f *frame.Frame, schema frame.Schema, rec []string) error {
	if len(rec) > len(schema.Columns) {
		r.longRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv long record at row %d: need %d fields, got %d", f.Rows(), len(schema.Columns), len(rec))
		}
	}
	if len(rec) < len(schema.Columns) {
		r.shortRecords++
		if r.opt.Strict {
			return fmt.Errorf("csv short record at row %d: need %d fields, got %d", f.Rows(), len(schema.Columns), len(rec))
		}
	}
	f.AppendNullRow()
	row := f.Rows() - 1
	for i, cs := range schema.Columns {
		if i >= len(rec) {
			break
		}
		if v, ok := iox.ParseCell(cs.Type, rec[i]); ok {
			_ = f.SetCell(row, cs.Name, v)
		}
	}
	return nil
}

func sniffDelimiter(sample []byte) rune {
	if i := strings.IndexByte(string(sample), '\n'); i > 0 {
		sample = sample[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', '\t', ';', '|'} {
		if n := strings.Count(string(sample), string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// Warnings returns a summary of any repairs made while reading.
func (r *Reader) Warnings() string {
	var parts []string
	if r.shortRecords > 0 {
		parts = append(parts, fmt.Sprintf("short_records=%d", r.shortRecords))
	}
	if r.longRecords > 0 {
		parts = append(parts, fmt.Sprintf("long_records=%d", r.longRecords))
	}
	return strings.Join(parts, ", ")
}
