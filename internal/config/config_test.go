package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shard != "default" || len(cfg.Maps) != 6 {
		t.Errorf("defaults = %+v", cfg)
	}
	if !cfg.UsesUOP() {
		t.Error("default client version should use UOP containers")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ultimalive.yaml")
	data := `
shard: test-shard
save_path: /srv/ul
client_path: /games/uo
client_version: 7.0.15.1
statics_capacity: 4096
log_level: debug
maps:
  - number: 0
    width: 7168
    height: 4096
    wrap_height: 4096
  - number: 32
    width: 64
    height: 128
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shard != "test-shard" || cfg.ClientPath != "/games/uo" || cfg.StaticsCapacity != 4096 || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ShardDir() != filepath.Join("/srv/ul", "test-shard") {
		t.Errorf("ShardDir = %q", cfg.ShardDir())
	}
	if cfg.UsesUOP() {
		t.Error("7.0.15.1 should be a legacy client")
	}
	m, ok := cfg.Map(32)
	if !ok {
		t.Fatal("map 32 missing")
	}
	if m.WrapHeight != 128 {
		t.Errorf("wrap height defaulted to %d, want 128", m.WrapHeight)
	}
	if m.WidthBlocks() != 8 || m.HeightBlocks() != 16 {
		t.Errorf("blocks = %dx%d, want 8x16", m.WidthBlocks(), m.HeightBlocks())
	}
	if len(cfg.Maps) != 2 {
		t.Errorf("maps = %d, want file list to replace defaults", len(cfg.Maps))
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, yaml, want string
	}{
		{"bad yaml", "shard: [", "parse config"},
		{"duplicate map", "maps: [{number: 1, width: 8, height: 8}, {number: 1, width: 8, height: 8}]", "defined twice"},
		{"tiny map", "maps: [{number: 1, width: 4, height: 8}]", "smaller than one block"},
		{"bad version", "client_version: seven", "bad component"},
		{"shard path", "shard: ../x", "path separators"},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "c.yaml")
		if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: err = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestVersionOrdering(t *testing.T) {
	tests := []struct {
		v   string
		uop  bool
	}{
		{"7.0.24.0", true},
		{"7.0.24.1", true},
		{"7.0.100", true},
		{"7.0.23.9", false},
		{"6.0.14.2", false},
		{"7", false},
		{"8", true},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.ClientVersion = tt.v
		if got := cfg.UsesUOP(); got != tt.uop {
			t.Errorf("UsesUOP(%s) = %v, want %v", tt.v, got, tt.uop)
		}
	}
	if v, _ := ParseVersion("7.0.24"); v.String() != "7.0.24.0" {
		t.Errorf("String = %s", v)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "c.yaml")
	cfg := DefaultConfig()
	cfg.Shard = "saved"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Shard != "saved" || len(got.Maps) != len(cfg.Maps) {
		t.Errorf("reloaded = %+v", got)
	}
}
