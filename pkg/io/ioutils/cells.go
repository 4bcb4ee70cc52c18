package ioutils

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/virtualphoton/autoimpute/pkg/frame"
)

var numre = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

// TimeLayouts are the timestamp layouts recognised in text input.
var TimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// IsNullToken reports whether a trimmed text cell denotes a missing value.
func IsNullToken(s string) bool {
	switch s {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL", "None":
		return true
	}
	return false
}

func ParseTime(s string) (time.Time, bool) {
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// KindCounter accumulates text samples of one column and decides its kind.
type KindCounter struct {
	num, integer, bools, times, str int
}

func (k *KindCounter) Add(v string) {
	v = strings.TrimSpace(v)
	if IsNullToken(v) {
		return
	}
	if numre.MatchString(v) {
		k.num++
		if !strings.ContainsAny(v, ".eE") {
			k.integer++
		}
		return
	}
	switch strings.ToLower(v) {
	case "true", "false":
		k.bools++
		return
	}
	if _, ok := ParseTime(v); ok {
		k.times++
		return
	}
	k.str++
}

// AddNumber counts an already-decoded number.
func (k *KindCounter) AddNumber(f float64) {
	k.num++
	if float64(int64(f)) == f {
		k.integer++
	}
}

func (k *KindCounter) AddBool() { k.bools++ }

// Kind returns the inferred kind: text wins unless a typed reading is the
// majority. Timestamps need every observed sample to parse.
func (k *KindCounter) Kind() frame.Kind {
	switch {
	case k.times > 0 && k.num == 0 && k.bools == 0 && k.str == 0:
		return frame.KindTime
	case k.bools > k.num && k.bools >= k.str+k.times:
		return frame.KindBool
	case k.num > k.str+k.times:
		if k.integer == k.num {
			return frame.KindInt
		}
		return frame.KindFloat
	default:
		return frame.KindString
	}
}

// ParseCell converts a text cell to a value of kind k. ok is false for null
// tokens and for text that does not parse.
func ParseCell(k frame.Kind, s string) (any, bool) {
	s = strings.TrimSpace(s)
	if IsNullToken(s) {
		return nil, false
	}
	switch k {
	case frame.KindFloat:
		x, err := strconv.ParseFloat(s, 64)
		return x, err == nil
	case frame.KindInt:
		x, err := strconv.ParseInt(s, 10, 64)
		return x, err == nil
	case frame.KindBool:
		x, err := strconv.ParseBool(strings.ToLower(s))
		return x, err == nil
	case frame.KindTime:
		t, ok := ParseTime(s)
		return t, ok
	default:
		return strings.ToValidUTF8(s, "?"), true
	}
}

// FormatCell renders cell i of c as text; null cells render empty.
func FormatCell(c frame.Column, i int) string {
	switch v := c.Value(i).(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return ""
	}
}
