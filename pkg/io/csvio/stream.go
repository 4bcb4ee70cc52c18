package csvio

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

// StreamReader reads CSV into Frame chunks of up to ChunkSize rows.
type StreamReader struct {
	r         *Reader
	schema    frame.Schema
	chunkSize int
}

// NewStreamReader opens the file, infers the schema from the first sampled
// rows and returns a StreamReader.
func NewStreamReader(path string, opt ReaderOptions, chunkSize int) (*StreamReader, io.Closer, error) {
	rr, c, err := Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	schema, _, err := rr.InferSchema()
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &StreamReader{r: rr, schema: schema, chunkSize: chunkSize}, c, nil
}

// Next returns the next chunk frame or io.EOF when complete.
func (s *StreamReader) Next() (*frame.Frame, error) {
	f := frame.NewFrame(s.schema)
	for f.Rows() < s.chunkSize {
		rec, err := s.r.next()
		if err == io.EOF {
			if f.Rows() == 0 {
				return nil, io.EOF
			}
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		if err := s.r.appendRecord(f, s.schema, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *StreamReader) Schema() frame.Schema { return s.schema }

// StreamWriter appends frames to a CSV file with a header (written once).
type StreamWriter struct {
	w           *csv.Writer
	out         io.WriteCloser
	wroteHeader bool
	schema      frame.Schema
}

func NewStreamWriter(path string, schema frame.Schema, opt WriterOptions) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return &StreamWriter{w: newCSVWriter(out, opt), out: out, schema: schema}, nil
}

func (s *StreamWriter) Write(fr *frame.Frame) error {
	if fr.Cols() != len(s.schema.Columns) {
		return fmt.Errorf("csv stream: chunk has %d columns, schema has %d", fr.Cols(), len(s.schema.Columns))
	}
	if !s.wroteHeader {
		if err := s.w.Write(s.schema.Names()); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	if err := writeRows(s.w, fr); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *StreamWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
