// Package arrowio reads and writes frames as Arrow IPC files. Each written
// frame becomes one record batch; reading concatenates all batches.
package arrowio

import (
	"fmt"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

var timestampType = arrow.FixedWidthTypes.Timestamp_us.(*arrow.TimestampType)

// ArrowSchema maps a frame schema to Arrow types. Times are stored as UTC
// microsecond timestamps.
func ArrowSchema(s frame.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(s.Columns))
	for i, cs := range s.Columns {
		var dt arrow.DataType
		switch cs.Type {
		case frame.KindFloat:
			dt = arrow.PrimitiveTypes.Float64
		case frame.KindInt:
			dt = arrow.PrimitiveTypes.Int64
		case frame.KindBool:
			dt = arrow.FixedWidthTypes.Boolean
		case frame.KindString:
			dt = arrow.BinaryTypes.String
		case frame.KindTime:
			dt = timestampType
		default:
			return nil, fmt.Errorf("arrow: column %s has unsupported kind %v", cs.Name, cs.Type)
		}
		fields[i] = arrow.Field{Name: cs.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ToRecord converts f into a record batch. The caller releases it.
func ToRecord(mem memory.Allocator, schema *arrow.Schema, f *frame.Frame) (arrow.Record, error) {
	if len(schema.Fields()) != f.Cols() {
		return nil, fmt.Errorf("arrow: frame has %d columns, schema has %d", f.Cols(), len(schema.Fields()))
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	b.Reserve(f.Rows())
	for c := 0; c < f.Cols(); c++ {
		col := f.Column(c)
		fb := b.Field(c)
		for r := 0; r < f.Rows(); r++ {
			v := col.Value(r)
			if v == nil {
				fb.AppendNull()
				continue
			}
			switch bb := fb.(type) {
			case *array.Float64Builder:
				bb.Append(v.(float64))
			case *array.Int64Builder:
				bb.Append(v.(int64))
			case *array.BooleanBuilder:
				bb.Append(v.(bool))
			case *array.StringBuilder:
				bb.Append(v.(string))
			case *array.TimestampBuilder:
				ts, err := arrow.TimestampFromTime(v.(time.Time), timestampType.Unit)
				if err != nil {
					return nil, err
				}
				bb.Append(ts)
			default:
				return nil, fmt.Errorf("arrow: unexpected builder %T for %s", fb, col.Name())
			}
		}
	}
	return b.NewRecord(), nil
}

// FromSchema maps an Arrow schema back to frame kinds. Unsupported Arrow
// types are an error.
func FromSchema(s *arrow.Schema) (frame.Schema, error) {
	out := frame.Schema{Columns: make([]frame.ColumnSchema, len(s.Fields()))}
	for i, fld := range s.Fields() {
		var k frame.Kind
		switch fld.Type.ID() {
		case arrow.FLOAT64, arrow.FLOAT32:
			k = frame.KindFloat
		case arrow.INT64, arrow.INT32, arrow.INT16, arrow.INT8:
			k = frame.KindInt
		case arrow.BOOL:
			k = frame.KindBool
		case arrow.STRING, arrow.LARGE_STRING:
			k = frame.KindString
		case arrow.TIMESTAMP:
			k = frame.KindTime
		default:
			return frame.Schema{}, fmt.Errorf("arrow: field %s has unsupported type %s", fld.Name, fld.Type)
		}
		out.Columns[i] = frame.ColumnSchema{Name: fld.Name, Type: k, Nullable: true}
	}
	return out, nil
}

// appendRecord appends every row of rec to f.
func appendRecord(f *frame.Frame, rec arrow.Record) error {
	start := f.Rows()
	for i := 0; i < int(rec.NumRows()); i++ {
		f.AppendNullRow()
	}
	for c := 0; c < int(rec.NumCols()); c++ {
		col := f.Column(c)
		arr := rec.Column(c)
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				continue
			}
			var v any
			switch a := arr.(type) {
			case *array.Float64:
				v = a.Value(i)
			case *array.Float32:
				v = float64(a.Value(i))
			case *array.Int64:
				v = a.Value(i)
			case *array.Int32:
				v = int64(a.Value(i))
			case *array.Int16:
				v = int64(a.Value(i))
			case *array.Int8:
				v = int64(a.Value(i))
			case *array.Boolean:
				v = a.Value(i)
			case *array.String:
				v = a.Value(i)
			case *array.LargeString:
				v = a.Value(i)
			case *array.Timestamp:
				v = a.Value(i).ToTime(a.DataType().(*arrow.TimestampType).Unit)
			default:
				return fmt.Errorf("arrow: unsupported array %T", arr)
			}
			if err := col.SetValue(start+i, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadFile reads every record batch of an Arrow IPC file into one Frame.
func ReadFile(path string) (*frame.Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = fh.Close() }()
	r, err := ipc.NewFileReader(fh, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("arrow %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()
	schema, err := FromSchema(r.Schema())
	if err != nil {
		return nil, err
	}
	f := frame.NewFrame(schema)
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		if err != nil {
			return nil, fmt.Errorf("arrow %s batch %d: %w", path, i, err)
		}
		if err := appendRecord(f, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Writer appends frames as record batches.
type Writer struct {
	file   *os.File
	w      *ipc.FileWriter
	schema *arrow.Schema
	mem    memory.Allocator
}

func NewWriter(path string, s frame.Schema) (*Writer, error) {
	schema, err := ArrowSchema(s)
	if err != nil {
		return nil, err
	}
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	mem := memory.NewGoAllocator()
	w, err := ipc.NewFileWriter(fh, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		_ = fh.Close()
		return nil, err
	}
	return &Writer{file: fh, w: w, schema: schema, mem: mem}, nil
}

func (w *Writer) Write(f *frame.Frame) error {
	rec, err := ToRecord(w.mem, w.schema, f)
	if err != nil {
		return err
	}
	defer rec.Release()
	return w.w.Write(rec)
}

func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteAll writes f as a single-batch Arrow IPC file.
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
