package cli

import (
	"context"
	"fmt"
	"io"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/virtualphoton/autoimpute/internal/config"
	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/io/arrowio"
	"github.com/virtualphoton/autoimpute/pkg/io/csvio"
	"github.com/virtualphoton/autoimpute/pkg/io/jsonlio"
	"github.com/virtualphoton/autoimpute/pkg/io/parquetio"
	"github.com/virtualphoton/autoimpute/pkg/io/sqlio"
)

func csvOptions(src config.Source) csvio.ReaderOptions {
	return csvio.ReaderOptions{
		HasHeader:  src.HasHeader,
		Delimiter:  src.DelimiterRune(),
		SampleRows: src.SampleRows,
	}
}

func stdio(path string) bool { return path == "" || path == "-" }

// readFrame loads a whole source into memory.
func readFrame(ctx context.Context, src config.Source) (*frame.Frame, error) {
	switch src.Format() {
	case "csv":
		return csvio.ReadFile(src.Path, csvOptions(src))
	case "jsonl":
		return jsonlio.ReadFile(src.Path, jsonlio.ReaderOptions{SampleRows: src.SampleRows})
	case "parquet":
		r, err := parquetio.OpenReader(src.Path, src.SampleRows)
		if err != nil {
			return nil, err
		}
		defer func() { _ = r.Close() }()
		return r.ReadAll()
	case "arrow":
		return arrowio.ReadFile(src.Path)
	case "sql":
		dsn := src.DSN
		if dsn == "" {
			dsn = src.Path
		}
		db, err := sqlio.Open(ctx, src.Driver, dsn)
		if err != nil {
			return nil, err
		}
		defer func() { _ = db.Close() }()
		return sqlio.Query(ctx, db, src.Query)
	default:
		return nil, fmt.Errorf("%w: unsupported input type %q", engine.ErrConfiguration, src.Format())
	}
}

type chunkSource interface {
	frame.ChunkSource
	Schema() frame.Schema
}

// openChunks opens src for reading size rows at a time.
func openChunks(src config.Source, size int) (chunkSource, io.Closer, error) {
	switch src.Format() {
	case "csv":
		return csvio.NewStreamReader(src.Path, csvOptions(src), size)
	case "jsonl":
		return jsonlio.NewStreamReader(src.Path, jsonlio.ReaderOptions{SampleRows: src.SampleRows}, size)
	case "parquet":
		sr, err := parquetio.NewStreamReader(src.Path, size, src.SampleRows)
		if err != nil {
			return nil, nil, err
		}
		return sr, sr, nil
	default:
		return nil, nil, fmt.Errorf("%w: chunked reading is not supported for %s input", engine.ErrConfiguration, src.Format())
	}
}

// openSink opens dst for chunked writing. CSV and JSON Lines go to stdout
// when dst has no path.
func openSink(dst config.Source, schema frame.Schema) (frame.ChunkSink, error) {
	path := dst.Path
	switch dst.Format() {
	case "csv":
		if stdio(path) {
			path = "-"
		}
		return csvio.NewStreamWriter(path, schema, csvio.WriterOptions{Delimiter: dst.DelimiterRune()})
	case "jsonl":
		if stdio(path) {
			path = "-"
		}
		return jsonlio.NewStreamWriter(path)
	case "parquet":
		if stdio(path) {
			return nil, fmt.Errorf("%w: parquet output needs a path", engine.ErrConfiguration)
		}
		return parquetio.NewStreamWriter(path, schema)
	case "arrow":
		if stdio(path) {
			return nil, fmt.Errorf("%w: arrow output needs a path", engine.ErrConfiguration)
		}
		return arrowio.NewWriter(path, schema)
	default:
		return nil, fmt.Errorf("%w: unsupported output type %q", engine.ErrConfiguration, dst.Format())
	}
}

// writeFrame writes f to dst, or to stdout for CSV and JSON Lines without a
// path.
func writeFrame(dst config.Source, f *frame.Frame, stdout io.Writer) error {
	switch dst.Format() {
	case "csv":
		opt := csvio.WriterOptions{Delimiter: dst.DelimiterRune()}
		if stdio(dst.Path) {
			return csvio.Write(stdout, f, opt)
		}
		return csvio.WriteAll(dst.Path, f, opt)
	case "jsonl":
		if stdio(dst.Path) {
			return jsonlio.Write(stdout, f)
		}
		return jsonlio.WriteAll(dst.Path, f)
	case "parquet":
		if stdio(dst.Path) {
			return fmt.Errorf("%w: parquet output needs a path", engine.ErrConfiguration)
		}
		return parquetio.WriteAll(dst.Path, f)
	case "arrow":
		if stdio(dst.Path) {
			return fmt.Errorf("%w: arrow output needs a path", engine.ErrConfiguration)
		}
		return arrowio.WriteAll(dst.Path, f)
	default:
		return fmt.Errorf("%w: unsupported output type %q", engine.ErrConfiguration, dst.Format())
	}
}
