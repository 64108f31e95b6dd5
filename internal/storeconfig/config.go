// Package storeconfig maps dashboard store ids to their PIN and upstream
// time clock.
package storeconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownStore  = errors.New("unknown store")
	ErrPINMismatch   = errors.New("pin mismatch")
	ErrInvalidConfig = errors.New("invalid store config")
)

type Store struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	PIN         string `json:"pin" yaml:"pin"`
	TimeClockID int64  `json:"timeClockId" yaml:"timeClockId"`
}

func (s Store) DisplayName() string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return s.ID
}

type Config struct {
	Stores []Store
	byID   map[string]int
}

// NewConfig validates stores and indexes them by id.
func NewConfig(stores []Store) (*Config, error) {
	cfg := &Config{Stores: make([]Store, 0, len(stores)), byID: make(map[string]int, len(stores))}
	var problems []string
	for i, s := range stores {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		s.PIN = strings.TrimSpace(s.PIN)
		switch {
		case s.ID == "":
			problems = append(problems, fmt.Sprintf("store %d: missing id", i+1))
			continue
		case s.PIN == "":
			problems = append(problems, fmt.Sprintf("store %q: missing pin", s.ID))
			continue
		case s.TimeClockID <= 0:
			problems = append(problems, fmt.Sprintf("store %q: missing time clock id", s.ID))
			continue
		}
		if _, dup := cfg.byID[s.ID]; dup {
			problems = append(problems, fmt.Sprintf("store %q: duplicate id", s.ID))
			continue
		}
		cfg.byID[s.ID] = len(cfg.Stores)
		cfg.Stores = append(cfg.Stores, s)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	sort.SliceStable(cfg.Stores, func(i, j int) bool { return cfg.Stores[i].ID < cfg.Stores[j].ID })
	for i, s := range cfg.Stores {
		cfg.byID[s.ID] = i
	}
	return cfg, nil
}

func (c *Config) Lookup(id string) (Store, bool) {
	if c == nil {
		return Store{}, false
	}
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Store{}, false
	}
	return c.Stores[idx], true
}

func Load(path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xls", ".xsl":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		stores, err := storesFromSpreadsheet(f, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return NewConfig(stores)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg, err := Parse(data, ext)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}
}

// Parse decodes a JSON or YAML document. ext selects the format; anything
// other than .yaml/.yml is treated as JSON.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var doc struct {
			Stores []Store `yaml:"stores"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewConfig(doc.Stores)
	default:
		return parseJSON(data)
	}
}

// parseJSON accepts either {"stores":[...]} or the flat form
// {"<store>": "<pin>", "store_map": {"<store>": <clock id>}}.
func parseJSON(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if _, ok := raw["stores"]; ok {
		var doc struct {
			Stores []Store `json:"stores"`
		}
		if err := sonic.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return NewConfig(doc.Stores)
	}

	clockIDs := map[string]int64{}
	if m, ok := raw["store_map"].(map[string]interface{}); ok {
		for id, v := range m {
			n, err := scalarInt(v)
			if err != nil {
				return nil, fmt.Errorf("%w: store_map[%q]: %v", ErrInvalidConfig, id, err)
			}
			clockIDs[id] = n
		}
	}
	names := map[string]string{}
	if m, ok := raw["store_names"].(map[string]interface{}); ok {
		for id, v := range m {
			names[id] = scalarString(v)
		}
	}

	stores := make([]Store, 0, len(raw))
	for id, v := range raw {
		if id == "store_map" || id == "store_names" {
			continue
		}
		stores = append(stores, Store{
			ID:          id,
			Name:        names[id],
			PIN:         scalarString(v),
			TimeClockID: clockIDs[id],
		})
	}
	return NewConfig(stores)
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func scalarInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return parseClockID(t)
	default:
		return 0, fmt.Errorf("unexpected value %v", v)
	}
}

func parseClockID(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, nil
	}
	// Spreadsheet cells often come back as "12345.0".
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time clock id %q", value)
	}
	return int64(f), nil
}
