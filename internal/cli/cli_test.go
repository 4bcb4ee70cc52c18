package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualphoton/autoimpute/pkg/engine"
	"github.com/virtualphoton/autoimpute/pkg/frame"
	"github.com/virtualphoton/autoimpute/pkg/io/csvio"
	"github.com/virtualphoton/autoimpute/pkg/io/jsonlio"
	"github.com/virtualphoton/autoimpute/pkg/io/parquetio"
	"github.com/virtualphoton/autoimpute/pkg/profile"
)

const airCSV = "../../examples/data/air_nulls.csv"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}

func assertComplete(t *testing.T, f *frame.Frame) {
	t.Helper()
	for i := 0; i < f.Cols(); i++ {
		assert.Zero(t, frame.NullCount(f.Column(i)), "column %s", f.Column(i).Name())
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "autoimpute "+Version+"\n", out)
}

func TestImputeBatch(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "filled.csv")
	_, err := run(t, "impute", "-i", airCSV, "-o", dst, "-v")
	require.NoError(t, err)

	f, err := csvio.ReadFile(dst, csvio.ReaderOptions{HasHeader: true})
	require.NoError(t, err)
	assert.Equal(t, 30, f.Rows())
	assert.Equal(t, []string{"date", "ozone", "solar_r", "wind", "temp", "month", "sky"}, f.Names())
	assertComplete(t, f)
}

func TestImputeToStdout(t *testing.T) {
	out, err := run(t, "impute", "-i", airCSV, "--strategy", "median", "--output-type", "jsonl")
	// median does not apply to the date and sky columns.
	require.Error(t, err)
	assert.Empty(t, out)

	out, err = run(t, "impute", "-i", airCSV, "--output-type", "jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 30)
	assert.NotContains(t, out, "null")
}

func TestImputeChunked(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "filled.jsonl")
	_, err := run(t, "impute", "-i", airCSV, "--chunk-size", "7", "-o", dst)
	require.NoError(t, err)

	f, err := jsonlio.ReadFile(dst, jsonlio.ReaderOptions{SampleRows: 100})
	require.NoError(t, err)
	assert.Equal(t, 30, f.Rows())
	assertComplete(t, f)
}

func TestImputeWithFitSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "filled.parquet")
	_, err := run(t, "impute", "-i", airCSV, "--fit", airCSV, "--scaler", "standard",
		"--strategy", "default,least squares,mean,mean,mean,mean,mode", "--predictors", "wind,temp", "-o", dst)
	require.NoError(t, err)

	f, err := parquetio.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, 30, f.Rows(), spew.Sdump(f.Schema()))
	assertComplete(t, f)
}

func TestImputeErrors(t *testing.T) {
	_, err := run(t, "impute")
	assert.True(t, errors.Is(err, engine.ErrConfiguration), "%v", err)
	assert.Equal(t, 2, exitCode(err))

	_, err = run(t, "impute", "-i", airCSV, "--strategy", "bogus")
	assert.True(t, errors.Is(err, engine.ErrValidation), "%v", err)
	assert.Equal(t, 2, exitCode(err))

	_, err = run(t, "impute", "-i", filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))

	_, err = run(t, "impute", "-i", airCSV, "--output-type", "parquet")
	assert.True(t, errors.Is(err, engine.ErrConfiguration), "%v", err)
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "gaps.csv")
	require.NoError(t, os.WriteFile(src, []byte("x,y\n1,10\n2,20\n3,30\n4,40\n20,\n21,\n22,\n23,\n"), 0o600))
	dst := filepath.Join(dir, "mis.csv")

	_, err := run(t, "classify", "-i", src, "--neighbors", "3", "-o", dst)
	require.NoError(t, err)

	f, err := csvio.ReadFile(dst, csvio.ReaderOptions{HasHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"x_mis", "y_mis"}, f.Names())
	y := f.Column(1).(*frame.IntColumn)
	for i := 0; i < y.Len(); i++ {
		v, _ := y.Get(i)
		assert.Equal(t, i >= 4, v == 1, "row %d", i)
	}
}

func TestProfile(t *testing.T) {
	out, err := run(t, "profile", "-i", airCSV, "--format", "json")
	require.NoError(t, err)
	var r profile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 30, r.Rows)
	assert.Equal(t, 9, r.Incomplete)
	missing := map[string]int{}
	for _, c := range r.Columns {
		missing[c.Name] = c.Missing
	}
	assert.Equal(t, map[string]int{"date": 0, "ozone": 5, "solar_r": 4, "wind": 0, "temp": 0, "month": 0, "sky": 3}, missing)

	chunked, err := run(t, "profile", "-i", airCSV, "--format", "json", "--chunk-size", "4")
	require.NoError(t, err)
	assert.JSONEq(t, out, chunked)

	md, err := run(t, "profile", "-i", airCSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(md, "|"), md)
	assert.Contains(t, md, "solar_r")

	_, err = run(t, "profile", "-i", airCSV, "--format", "html")
	assert.True(t, errors.Is(err, engine.ErrConfiguration), "%v", err)
}

func TestProfileSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "air.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE air (ozone INTEGER, wind REAL, sky TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO air VALUES (41, 7.4, 'clear'), (NULL, 8.0, 'clear'), (12, NULL, NULL), (18, 11.5, 'rain')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := run(t, "profile", "--driver", "sqlite", "--dsn", path, "--query", "SELECT * FROM air", "--format", "json")
	require.NoError(t, err)
	var r profile.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Columns, 3)
	assert.Equal(t, 4, r.Rows)
	assert.Equal(t, 2, r.Incomplete)
	assert.Equal(t, "int", r.Columns[0].Kind)
	assert.Equal(t, "float", r.Columns[1].Kind)
	assert.Equal(t, "string", r.Columns[2].Kind)
	assert.Equal(t, 1, r.Columns[2].Missing)
}

func TestConfigCommand(t *testing.T) {
	t.Setenv("AUTOIMPUTE_SCALER", "standard")
	cfgPath := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("neighbors = 3\n[input]\npath = \"air.csv\"\n"), 0o600))

	out, err := run(t, "config", "--config", cfgPath, "--strategy", "mean")
	require.NoError(t, err)
	assert.Contains(t, out, "scaler: standard")
	assert.Contains(t, out, "strategy: mean")
	assert.Contains(t, out, "neighbors: 3")
	assert.Contains(t, out, "path: air.csv")
}

func TestResolveFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "markdown", resolveFormat("auto", &buf))
	assert.Equal(t, "json", resolveFormat("json", &buf))
}
