// Package jsonlio reads and writes newline-delimited JSON objects as frames.
// Every object is one row; the union of the sampled keys, sorted, becomes
// the schema.
package jsonlio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

type ReaderOptions struct {
	SampleRows int // for inference; default 100
}

type Reader struct {
	dec *json.Decoder
	opt ReaderOptions
	buf []map[string]any
}

// Open opens a JSONL file ("-" for stdin, gzip detected).
func Open(path string, opt ReaderOptions) (*Reader, io.Closer, error) {
	rc, err := iox.OpenMaybeCompressed(path)
	if err != nil {
		return nil, nil, err
	}
	return NewReaderFrom(rc, opt), rc, nil
}

func NewReaderFrom(r io.Reader, opt ReaderOptions) *Reader {
	return &Reader{dec: json.NewDecoder(bufio.NewReader(r)), opt: opt}
}

// ReadFile reads a whole JSONL file into a Frame.
func ReadFile(path string, opt ReaderOptions) (*frame.Frame, error) {
	r, c, err := Open(path, opt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = c.Close() }()
	schema, err := r.InferSchema()
	if err != nil {
		return nil, fmt.Errorf("jsonl %s: %w", path, err)
	}
	return r.ReadAll(schema)
}

func (r *Reader) next() (map[string]any, error) {
	if len(r.buf) > 0 {
		m := r.buf[0]
		r.buf = r.buf[1:]
		return m, nil
	}
	var m map[string]any
	if err := r.dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// InferSchema samples objects to determine the columns and their kinds.
// Sampled objects are kept for ReadAll.
func (r *Reader) InferSchema() (frame.Schema, error) {
	max := r.opt.SampleRows
	if max <= 0 {
		max = 100
	}
	counters := map[string]*iox.KindCounter{}
	for len(r.buf) < max {
		var m map[string]any
		if err := r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				break
			}
			return frame.Schema{}, err
		}
		r.buf = append(r.buf, m)
		for k, v := range m {
			kc, ok := counters[k]
			if !ok {
				kc = &iox.KindCounter{}
				counters[k] = kc
			}
			observe(kc, v)
		}
	}
	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(keys))}
	for i, k := range keys {
		schema.Columns[i] = frame.ColumnSchema{Name: k, Type: counters[k].Kind(), Nullable: true}
	}
	return schema, nil
}

func observe(kc *iox.KindCounter, v any) {
	switch t := v.(type) {
	case nil:
	case float64:
		kc.AddNumber(t)
	case bool:
		kc.AddBool()
	case string:
		kc.Add(t)
	default:
		b, _ := json.Marshal(t)
		kc.Add(string(b))
	}
}

// ReadAll loads the remaining objects into a Frame.
func (r *Reader) ReadAll(schema frame.Schema) (*frame.Frame, error) {
	f := frame.NewFrame(schema)
	for {
		m, err := r.next()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		appendObject(f, m)
	}
}

// appendObject adds m as a new row. Keys outside the schema are dropped and
// values that cannot be coerced stay null.
func appendObject(f *frame.Frame, m map[string]any) {
	f.AppendNullRow()
	row := f.Rows() - 1
	for _, cs := range f.Schema().Columns {
		v, ok := m[cs.Name]
		if !ok || v == nil {
			continue
		}
		if x, ok := coerce(cs.Type, v); ok {
			_ = f.SetCell(row, cs.Name, x)
		}
	}
}

func coerce(k frame.Kind, v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return iox.ParseCell(k, t)
	case float64:
		switch k {
		case frame.KindFloat:
			return t, true
		case frame.KindInt:
			return int64(t), true
		case frame.KindString:
			return strconv.FormatFloat(t, 'g', -1, 64), true
		}
	case bool:
		switch k {
		case frame.KindBool:
			return t, true
		case frame.KindString:
			return strconv.FormatBool(t), true
		}
	default:
		if k == frame.KindString {
			b, err := json.Marshal(t)
			return string(b), err == nil
		}
	}
	return nil, false
}
