package frame

import (
	"context"
	"errors"
	"io"
)

// ChunkSource yields frames in chunks until io.EOF.
type ChunkSource interface {
	Next() (*Frame, error)
}

// ChunkSink consumes frames, typically writing them out.
type ChunkSink interface {
	Write(*Frame) error
	Close() error
}

// RunStream pulls chunks from src, applies the pipeline, and writes to sink.
// Row labels continue across chunks so each chunk keeps its position in the
// source. The sink is closed on return.
func RunStream(ctx context.Context, p *Pipeline, src ChunkSource, sink ChunkSink) (err error) {
	defer func() {
		if cerr := sink.Close(); err == nil {
			err = cerr
		}
	}()
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		labels := make([]int, f.Rows())
		for i := range labels {
			labels[i] = offset + i
		}
		_ = f.SetIndex(labels)
		offset += f.Rows()
		out, err := p.Run(ctx, f)
		if err != nil {
			return err
		}
		if err := sink.Write(out); err != nil {
			return err
		}
	}
}
