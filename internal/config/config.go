// Package config loads autoimpute run configuration.
//
// Precedence (highest to lowest): flags > AUTOIMPUTE_* env vars > config
// file > defaults. Nested keys are addressed with "." in files and flags and
// with "__" in environment variables (AUTOIMPUTE_INPUT__PATH -> input.path),
// so column names containing "." cannot be used as map keys.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/virtualphoton/autoimpute/pkg/engine"
)

const EnvPrefix = "AUTOIMPUTE_"

// Source describes a dataset location.
type Source struct {
	Path       string `koanf:"path" yaml:"path,omitempty"`
	Type       string `koanf:"type" yaml:"type,omitempty"` // csv|jsonl|parquet|arrow|sql; inferred from Path when empty
	HasHeader  bool   `koanf:"has_header" yaml:"has_header"`
	Delimiter  string `koanf:"delimiter" yaml:"delimiter,omitempty"`
	SampleRows int    `koanf:"sample_rows" yaml:"sample_rows,omitempty"`
	Driver     string `koanf:"driver" yaml:"driver,omitempty"`
	DSN        string `koanf:"dsn" yaml:"dsn,omitempty"`
	Query      string `koanf:"query" yaml:"query,omitempty"`
}

// Config holds one run of the CLI.
type Config struct {
	Input      Source         `koanf:"input" yaml:"input"`
	Output     Source         `koanf:"output" yaml:"output"`
	Fit        Source         `koanf:"fit" yaml:"fit,omitempty"`
	Strategy   any            `koanf:"strategy" yaml:"strategy"`
	Predictors any            `koanf:"predictors" yaml:"predictors"`
	Params     map[string]any `koanf:"params" yaml:"params,omitempty"`
	Scaler     string         `koanf:"scaler" yaml:"scaler,omitempty"`
	Seed       int64          `koanf:"seed" yaml:"seed,omitempty"`
	Neighbors  int            `koanf:"neighbors" yaml:"neighbors"`
	ChunkSize  int            `koanf:"chunk_size" yaml:"chunk_size,omitempty"`
	Verbose    bool           `koanf:"verbose" yaml:"verbose"`
}

func defaults() map[string]any {
	return map[string]any{
		"input.has_header":  true,
		"input.sample_rows": 100,
		"strategy":          "default",
		"predictors":        engine.AllPredictors,
		"neighbors":         5,
		"verbose":           false,
	}
}

// flagKeys maps CLI flag names to config keys where they differ.
var flagKeys = map[string]string{
	"input":       "input.path",
	"input-type":  "input.type",
	"output":      "output.path",
	"output-type": "output.type",
	"fit":         "fit.path",
	"delimiter":   "input.delimiter",
	"sample-rows": "input.sample_rows",
	"driver":      "input.driver",
	"dsn":         "input.dsn",
	"query":       "input.query",
	"no-header":   "",
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return tomlParser{}, nil
	case ".json":
		return jsonParser{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported config file %s (want .yaml, .yml, .toml or .json)", engine.ErrConfiguration, path)
	}
}

// Load reads configuration from defaults, path (optional), the environment
// and the explicitly set flags of fs (optional).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		p, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), p); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(fs, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		if fs.Changed("no-header") {
			if v, _ := fs.GetBool("no-header"); v {
				_ = k.Set("input.has_header", false)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: unable to decode config: %v", engine.ErrConfiguration, err)
	}
	return &cfg, nil
}

// Format returns the declared type of s, or the one implied by its path.
func (s Source) Format() string {
	if s.Type != "" {
		return strings.ToLower(s.Type)
	}
	if s.Query != "" {
		return "sql"
	}
	p := strings.ToLower(strings.TrimSuffix(s.Path, ".gz"))
	switch filepath.Ext(p) {
	case ".jsonl", ".ndjson", ".json":
		return "jsonl"
	case ".parquet":
		return "parquet"
	case ".arrow", ".ipc", ".feather":
		return "arrow"
	default:
		return "csv"
	}
}

// DelimiterRune returns the first rune of Delimiter, or 0 when unset.
func (s Source) DelimiterRune() rune {
	switch s.Delimiter {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(s.Delimiter)[0]
}

// Validate checks the parts of the configuration that do not depend on data.
func (c *Config) Validate() error {
	for name, s := range map[string]Source{"input": c.Input, "output": c.Output} {
		switch s.Format() {
		case "csv", "jsonl", "parquet", "arrow":
		case "sql":
			if name == "output" {
				return fmt.Errorf("%w: sql is not supported as an output", engine.ErrConfiguration)
			}
			if s.Query == "" {
				return fmt.Errorf("%w: %s: sql source needs a query", engine.ErrConfiguration, name)
			}
		default:
			return fmt.Errorf("%w: %s: unsupported type %q", engine.ErrConfiguration, name, s.Type)
		}
	}
	if c.Input.Path == "" && c.Input.Format() != "sql" {
		return fmt.Errorf("%w: input path is required", engine.ErrConfiguration)
	}
	if c.Neighbors < 0 {
		return fmt.Errorf("%w: neighbors must be >= 0, got %d", engine.ErrConfiguration, c.Neighbors)
	}
	if _, err := c.StrategySpec(); err != nil {
		return err
	}
	_, err := c.PredictorSpec()
	return err
}

// StrategySpec decodes Strategy. A comma-separated string, as given on the
// command line, is a per-position list.
func (c *Config) StrategySpec() (engine.StrategySpec, error) {
	if c.Strategy == nil {
		return engine.SingleStrategy("default"), nil
	}
	return engine.ParseStrategySpec(splitList(c.Strategy))
}

// PredictorSpec decodes Predictors; a comma-separated string is a list.
func (c *Config) PredictorSpec() (engine.PredictorSpec, error) {
	return engine.ParsePredictorSpec(splitList(c.Predictors))
}

func splitList(v any) any {
	s, ok := v.(string)
	if !ok || !strings.Contains(s, ",") {
		return v
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ImputerParams returns Params with Seed applied to the random strategy
// unless params for it are already given.
func (c *Config) ImputerParams() map[string]any {
	out := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		out[k] = v
	}
	if c.Seed != 0 {
		if _, ok := out["random"]; !ok {
			out["random"] = map[string]any{"seed": c.Seed}
		}
	}
	return out
}
