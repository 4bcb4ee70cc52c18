// Package profile summarises the missingness of a dataset, column by
// column. A Collector consumes whole frames or stream chunks.
package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

type NumStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	sum  float64
}

type ColumnProfile struct {
	Name     string         `json:"name"`
	Kind     string         `json:"kind"`
	Group    string         `json:"group"`
	Observed int            `json:"observed"`
	Missing  int            `json:"missing"`
	Fraction float64        `json:"missing_fraction"`
	Num      *NumStats      `json:"num,omitempty"`
	Distinct int            `json:"distinct,omitempty"`
	Top      map[string]int `json:"top,omitempty"`

	freqs map[string]int
}

type Report struct {
	Rows       int             `json:"rows"`
	Incomplete int             `json:"incomplete_rows"`
	Columns    []ColumnProfile `json:"columns"`
}

type Collector struct {
	cols       []ColumnProfile
	index      map[string]int
	topK       int
	rows       int
	incomplete int
}

// NewCollector prepares a collector for frames with the given schema. topK
// limits the category frequencies kept in reports; 0 keeps none.
func NewCollector(schema frame.Schema, topK int) *Collector {
	c := &Collector{index: make(map[string]int), topK: topK}
	c.cols = make([]ColumnProfile, len(schema.Columns))
	for i, cs := range schema.Columns {
		grp := engine.KindGroup(cs.Type)
		cp := ColumnProfile{Name: cs.Name, Kind: cs.Type.String(), Group: grp.String()}
		switch grp {
		case engine.GroupNumeric:
			cp.Num = &NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
		case engine.GroupCategorical:
			cp.freqs = make(map[string]int)
		}
		c.cols[i] = cp
		c.index[cs.Name] = i
	}
	return c
}

// Profile is a convenience for a single in-memory frame.
func Profile(f *frame.Frame, topK int) Report {
	c := NewCollector(f.Schema(), topK)
	_ = c.ConsumeFrame(f)
	return c.Report()
}

// ConsumeFrame adds the rows of f. Columns are matched by name.
func (c *Collector) ConsumeFrame(f *frame.Frame) error {
	incomplete := make([]bool, f.Rows())
	for _, cs := range f.Schema().Columns {
		idx, ok := c.index[cs.Name]
		if !ok {
			return fmt.Errorf("profile: unknown column %s", cs.Name)
		}
		cp := &c.cols[idx]
		col, _ := f.ColumnByName(cs.Name)
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				cp.Missing++
				incomplete[i] = true
				continue
			}
			cp.Observed++
			switch {
			case cp.Num != nil:
				v, _ := frame.Numeric(col, i)
				cp.Num.Min = math.Min(cp.Num.Min, v)
				cp.Num.Max = math.Max(cp.Num.Max, v)
				cp.Num.sum += v
			case cp.freqs != nil:
				cp.freqs[iox.FormatCell(col, i)]++
			}
		}
	}
	c.rows += f.Rows()
	for _, b := range incomplete {
		if b {
			c.incomplete++
		}
	}
	return nil
}

// Report returns the profile accumulated so far.
func (c *Collector) Report() Report {
	out := Report{Rows: c.rows, Incomplete: c.incomplete, Columns: make([]ColumnProfile, len(c.cols))}
	for i, cp := range c.cols {
		if n := cp.Observed + cp.Missing; n > 0 {
			cp.Fraction = float64(cp.Missing) / float64(n)
		}
		if cp.Num != nil {
			num := *cp.Num
			num.Mean = num.sum / float64(cp.Observed)
			cp.Num = &num
			if cp.Observed == 0 {
				cp.Num = nil
			}
		}
		if cp.freqs != nil {
			cp.Distinct = len(cp.freqs)
			cp.Top = topK(cp.freqs, c.topK)
		}
		cp.freqs = nil
		out.Columns[i] = cp
	}
	return out
}

func topK(freqs map[string]int, k int) map[string]int {
	if k <= 0 || len(freqs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(freqs))
	for key := range freqs {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freqs[keys[i]] != freqs[keys[j]] {
			return freqs[keys[i]] > freqs[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > k {
		keys = keys[:k]
	}
	out := make(map[string]int, len(keys))
	for _, key := range keys {
		out[key] = freqs[key]
	}
	return out
}

// ReportTable renders the report as a box table, or as a markdown table.
func (r Report) ReportTable(w io.Writer, markdown bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"column", "kind", "group", "observed", "missing", "missing %", "distinct", "mean"})
	for _, cp := range r.Columns {
		distinct, mean := "", ""
		if cp.Group == engine.GroupCategorical.String() {
			distinct = fmt.Sprint(cp.Distinct)
		}
		if cp.Num != nil {
			mean = fmt.Sprintf("%.6g", cp.Num.Mean)
		}
		t.AppendRow(table.Row{cp.Name, cp.Kind, cp.Group, cp.Observed, cp.Missing, fmt.Sprintf("%.1f", 100*cp.Fraction), distinct, mean})
	}
	t.AppendFooter(table.Row{"rows", r.Rows, "incomplete", r.Incomplete})
	if markdown {
		t.RenderMarkdown()
		return
	}
	t.Render()
}

// ReportJSON writes the report as indented JSON.
func (r Report) ReportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
