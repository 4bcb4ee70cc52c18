package jsonlio

import (
	"bufio"
	"io"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

type StreamReader struct {
	r         *Reader
	schema    frame.Schema
	chunkSize int
}

// NewStreamReader infers the schema from the first sampled objects and
// yields frames of up to chunkSize rows.
func NewStreamReader(path string, opt ReaderOptions, chunkSize int) (*StreamReader, io.Closer, error) {
	r, c, err := Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	schema, err := r.InferSchema()
	if err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &StreamReader{r: r, schema: schema, chunkSize: chunkSize}, c, nil
}

// Next returns the next chunk or io.EOF.
func (s *StreamReader) Next() (*frame.Frame, error) {
	f := frame.NewFrame(s.schema)
	for f.Rows() < s.chunkSize {
		m, err := s.r.next()
		if err == io.EOF {
			if f.Rows() == 0 {
				return nil, io.EOF
			}
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		appendObject(f, m)
	}
	return f, nil
}

func (s *StreamReader) Schema() frame.Schema { return s.schema }

type StreamWriter struct {
	w   *bufio.Writer
	out io.WriteCloser
}

func NewStreamWriter(path string) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	return &StreamWriter{w: bufio.NewWriter(out), out: out}, nil
}

func (s *StreamWriter) Write(f *frame.Frame) error {
	if err := Write(s.w, f); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *StreamWriter) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
