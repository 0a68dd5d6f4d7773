package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds ultimalive settings.
type Config struct {
	// Shard identifies the server; its maps live in SavePath/Shard.
	Shard    string `yaml:"shard"`
	SavePath string `yaml:"save_path"`

	// Game client install used to seed new shard maps.
	ClientPath    string `yaml:"client_path"`
	ClientVersion string `yaml:"client_version"`

	Maps []MapDefinition `yaml:"maps"`

	// StaticsCapacity bounds each statics pool in bytes; 0 means the store default.
	StaticsCapacity uint32 `yaml:"statics_capacity"`

	LogLevel string `yaml:"log_level"`
}

// MapDefinition describes one facet in tiles.
type MapDefinition struct {
	Number     int    `yaml:"number"`
	Width      uint32 `yaml:"width"`
	Height     uint32 `yaml:"height"`
	WrapHeight uint32 `yaml:"wrap_height"`
}

// WidthBlocks is the width in 8x8 blocks.
func (m MapDefinition) WidthBlocks() uint32 { return m.Width >> 3 }

// HeightBlocks is the height in 8x8 blocks.
func (m MapDefinition) HeightBlocks() uint32 { return m.Height >> 3 }

// WrapHeightBlocks is the wrap height in 8x8 blocks.
func (m MapDefinition) WrapHeightBlocks() uint32 { return m.WrapHeight >> 3 }

// DefaultMaps are the six classic facets.
func DefaultMaps() []MapDefinition {
	return []MapDefinition{
		{Number: 0, Width: 7168, Height: 4096, WrapHeight: 4096},
		{Number: 1, Width: 7168, Height: 4096, WrapHeight: 4096},
		{Number: 2, Width: 2304, Height: 1600, WrapHeight: 1600},
		{Number: 3, Width: 2560, Height: 2048, WrapHeight: 2048},
		{Number: 4, Width: 1448, Height: 1448, WrapHeight: 1448},
		{Number: 5, Width: 1280, Height: 4096, WrapHeight: 4096},
	}
}

// DefaultConfig returns a config with defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Shard:         "default",
		SavePath:      defaultSavePath(),
		ClientPath:    ".",
		ClientVersion: "7.0.24.0",
		Maps:          DefaultMaps(),
		LogLevel:      "info",
	}
}

func defaultSavePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ultimalive")
	}
	return "ultimalive"
}

// Load reads a YAML config from path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for i := range cfg.Maps {
		if cfg.Maps[i].WrapHeight == 0 {
			cfg.Maps[i].WrapHeight = cfg.Maps[i].Height
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ShardDir is the directory holding this shard's map files.
func (c *Config) ShardDir() string {
	return filepath.Join(c.SavePath, c.Shard)
}

// Map returns the definition of map number n.
func (c *Config) Map(n int) (MapDefinition, bool) {
	for _, m := range c.Maps {
		if m.Number == n {
			return m, true
		}
	}
	return MapDefinition{}, false
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Shard == "" {
		errs = append(errs, errors.New("shard is required"))
	}
	if strings.ContainsAny(c.Shard, `/\`) {
		errs = append(errs, fmt.Errorf("shard %q must not contain path separators", c.Shard))
	}
	if _, err := ParseVersion(c.ClientVersion); err != nil {
		errs = append(errs, err)
	}
	seen := make(map[int]bool)
	for _, m := range c.Maps {
		if seen[m.Number] {
			errs = append(errs, fmt.Errorf("map %d defined twice", m.Number))
		}
		seen[m.Number] = true
		if m.Number < 0 || m.Number > 255 {
			errs = append(errs, fmt.Errorf("map %d: number out of range", m.Number))
		}
		if m.WidthBlocks() == 0 || m.HeightBlocks() == 0 || m.WrapHeightBlocks() == 0 {
			errs = append(errs, fmt.Errorf("map %d: %dx%d (wrap %d) is smaller than one block", m.Number, m.Width, m.Height, m.WrapHeight))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Version is a dotted four-part client version.
type Version [4]int

// ParseVersion parses "major.minor.build.revision". Missing trailing parts
// are zero.
func ParseVersion(s string) (Version, error) {
	var v Version
	parts := strings.Split(strings.TrimSpace(s), ".")
	if s == "" || len(parts) > 4 {
		return v, fmt.Errorf("client version %q: want up to four dotted numbers", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("client version %q: bad component %q", s, p)
		}
		v[i] = n
	}
	return v, nil
}

// Less reports whether v precedes o.
func (v Version) Less(o Version) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v[0], v[1], v[2], v[3])
}

// FirstUOPVersion is the first client shipping maps in UOP containers.
var FirstUOPVersion = Version{7, 0, 24, 0}

// UsesUOP reports whether the configured client stores maps in UOP containers.
func (c *Config) UsesUOP() bool {
	v, err := ParseVersion(c.ClientVersion)
	if err != nil {
		return false
	}
	return !v.Less(FirstUOPVersion)
}
