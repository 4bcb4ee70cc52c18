package config

import (
	"encoding/json"

	toml "github.com/pelletier/go-toml/v2"
)

// tomlParser is a koanf.Parser backed by go-toml.
type tomlParser struct{}

func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(o map[string]any) ([]byte, error) { return toml.Marshal(o) }

type jsonParser struct{}

func (jsonParser) Unmarshal(b []byte) (map[string]any, error) {
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (jsonParser) Marshal(o map[string]any) ([]byte, error) { return json.Marshal(o) }
