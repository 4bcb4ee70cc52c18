package parquetio

import (
	"github.com/virtualphoton/autoimpute/pkg/frame"
)

// StreamReader reads Parquet rows in chunks as Frames.
type StreamReader struct {
	r         *Reader
	chunkSize int
}

func NewStreamReader(path string, chunkSize, sampleRows int) (*StreamReader, error) {
	r, err := OpenReader(path, sampleRows)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	return &StreamReader{r: r, chunkSize: chunkSize}, nil
}

func (s *StreamReader) Close() error { return s.r.Close() }

func (s *StreamReader) Schema() frame.Schema { return s.r.Schema() }

// Next returns the next chunk or io.EOF.
func (s *StreamReader) Next() (*frame.Frame, error) { return s.r.readChunk(s.chunkSize) }

// StreamWriter writes Frames to a Parquet file incrementally.
type StreamWriter struct {
	*Writer
}

func NewStreamWriter(path string, schema frame.Schema) (*StreamWriter, error) {
	w, err := NewWriter(path, schema)
	if err != nil {
		return nil, err
	}
	return &StreamWriter{Writer: w}, nil
}
