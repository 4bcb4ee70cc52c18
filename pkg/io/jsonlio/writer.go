package jsonlio

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

// WriteAll writes f as one JSON object per row. Null cells are written as
// JSON null so missingness survives a round trip.
func WriteAll(path string, f *frame.Frame) (err error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)
	if err := Write(w, f); err != nil {
		return err
	}
	return w.Flush()
}

// Write encodes the rows of f to w.
func Write(w io.Writer, f *frame.Frame) error {
	enc := json.NewEncoder(w)
	names := f.Names()
	for r := 0; r < f.Rows(); r++ {
		m := make(map[string]any, len(names))
		for c, name := range names {
			m[name] = jsonValue(f.Column(c), r)
		}
		if err := enc.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func jsonValue(c frame.Column, i int) any {
	switch v := c.Value(i).(type) {
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}
