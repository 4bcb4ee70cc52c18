package csvio

import (
	"encoding/csv"
	"io"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

type WriterOptions struct {
	Delimiter rune // default ','
}

// WriteAll writes a Frame to a CSV file with headers. Paths ending in .gz
// are compressed; "-" writes to stdout.
func WriteAll(path string, f *frame.Frame, opt WriterOptions) (err error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(out, f, opt)
}

// Write encodes f as CSV with a header row.
func Write(w io.Writer, f *frame.Frame, opt WriterOptions) error {
	cw := newCSVWriter(w, opt)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	if err := writeRows(cw, f); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func newCSVWriter(w io.Writer, opt WriterOptions) *csv.Writer {
	cw := csv.NewWriter(w)
	if opt.Delimiter != 0 {
		cw.Comma = opt.Delimiter
	}
	return cw
}

func writeRows(cw *csv.Writer, f *frame.Frame) error {
	row := make([]string, f.Cols())
	for r := 0; r < f.Rows(); r++ {
		for c := range row {
			row[c] = iox.FormatCell(f.Column(c), r)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return nil
}
