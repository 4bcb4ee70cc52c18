// Package sqlio loads the result of a SQL query into a frame. Column kinds
// are inferred from the scanned Go values; the driver's declared type is
// only consulted for columns that are entirely NULL.
package sqlio

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/virtualphoton/autoimpute/pkg/frame"
	iox "github.com/virtualphoton/autoimpute/pkg/io/ioutils"
)

// DriverName maps user-facing driver aliases to registered database/sql
// driver names.
func DriverName(driver string) string {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return "pgx"
	case "sqlite", "sqlite3", "":
		return "sqlite"
	default:
		return driver
	}
}

// Open opens and pings a database.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(DriverName(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sql ping %s: %w", driver, err)
	}
	return db, nil
}

// Query runs query and returns its rows as a Frame.
func Query(ctx context.Context, db *sql.DB, query string, args ...any) (*frame.Frame, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sql query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	var data [][]any
	for rows.Next() {
		rec := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range rec {
			ptrs[i] = &rec[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sql scan row %d: %w", len(data), err)
		}
		for i, v := range rec {
			rec[i] = normalize(v)
		}
		data = append(data, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sql rows: %w", err)
	}

	schema := frame.Schema{Columns: make([]frame.ColumnSchema, len(names))}
	for c, name := range names {
		var kc iox.KindCounter
		seen := false
		for _, rec := range data {
			seen = observe(&kc, rec[c]) || seen
		}
		k := kc.Kind()
		if !seen && c < len(types) {
			k = declaredKind(types[c].DatabaseTypeName())
		}
		schema.Columns[c] = frame.ColumnSchema{Name: name, Type: k, Nullable: true}
	}
	f := frame.NewFrame(schema)
	for r, rec := range data {
		f.AppendNullRow()
		for c, v := range rec {
			if x, ok := coerce(schema.Columns[c].Type, v); ok {
				_ = f.Column(c).SetValue(r, x)
			}
		}
	}
	return f, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case int8:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	}
	return v
}

// observe feeds a scanned value to kc and reports whether it was non-null.
func observe(kc *iox.KindCounter, v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case int64:
		kc.AddNumber(float64(t))
	case float64:
		kc.AddNumber(t)
	case bool:
		kc.AddBool()
	case time.Time:
		kc.Add(t.Format(time.RFC3339Nano))
	case string:
		kc.Add(t)
	default:
		kc.Add(fmt.Sprint(t))
	}
	return true
}

func coerce(k frame.Kind, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch t := v.(type) {
	case string:
		return iox.ParseCell(k, t)
	case int64:
		switch k {
		case frame.KindInt:
			return t, true
		case frame.KindFloat:
			return float64(t), true
		case frame.KindBool:
			return t != 0, true
		case frame.KindString:
			return strconv.FormatInt(t, 10), true
		}
	case float64:
		switch k {
		case frame.KindFloat:
			return t, true
		case frame.KindInt:
			return int64(t), true
		case frame.KindString:
			return strconv.FormatFloat(t, 'g', -1, 64), true
		}
	case bool:
		switch k {
		case frame.KindBool:
			return t, true
		case frame.KindString:
			return strconv.FormatBool(t), true
		}
	case time.Time:
		switch k {
		case frame.KindTime:
			return t, true
		case frame.KindString:
			return t.Format(time.RFC3339), true
		}
	default:
		if k == frame.KindString {
			return fmt.Sprint(t), true
		}
	}
	return nil, false
}

func declaredKind(typeName string) frame.Kind {
	t := strings.ToUpper(typeName)
	switch {
	case strings.Contains(t, "INT"):
		return frame.KindInt
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"),
		strings.Contains(t, "NUMERIC"), strings.Contains(t, "DECIMAL"):
		return frame.KindFloat
	case strings.Contains(t, "BOOL"):
		return frame.KindBool
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"):
		return frame.KindTime
	default:
		return frame.KindString
	}
}
