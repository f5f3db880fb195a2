package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shiptrack/internal/model"
)

// Dataset is an in-memory code → entry table.
type Dataset struct {
	entries map[string]Entry
}

func NewDataset(entries map[string]Entry) *Dataset {
	norm := make(map[string]Entry, len(entries))
	for code, e := range entries {
		norm[NormalizeCode(code)] = e
	}
	return &Dataset{entries: norm}
}

// LoadFile reads a JSON or YAML object keyed by location code. YAML is
// chosen by a .yaml or .yml extension.
func LoadFile(path string) (*Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("geo: read dataset: %w", err)
	}
	entries := map[string]Entry{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &entries)
	default:
		err = json.Unmarshal(b, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("geo: decode %s: %w", filepath.Base(path), err)
	}
	return NewDataset(entries), nil
}

func (d *Dataset) Len() int { return len(d.entries) }

func (d *Dataset) Lookup(_ context.Context, code string) (model.Coordinate, bool, error) {
	code = NormalizeCode(code)
	if code == "" {
		return model.Coordinate{}, false, nil
	}
	e, ok := d.entries[code]
	if !ok {
		return model.Coordinate{}, false, nil
	}
	c, ok := e.coordinate(code)
	return c, ok, nil
}

// Entries returns a copy of the table.
func (d *Dataset) Entries() map[string]Entry {
	out := make(map[string]Entry, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}
	return out
}
