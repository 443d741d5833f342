package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Node.URI != DefaultNodeURI {
		t.Errorf("Node.URI = %q, want %q", cfg.Node.URI, DefaultNodeURI)
	}
	if cfg.Node.Timeout != DefaultTimeout {
		t.Errorf("Node.Timeout = %d, want %d", cfg.Node.Timeout, DefaultTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(Default()) error: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knishio.conf")
	content := `# comment
node.uri = https://node.example.com/graphql
node.cell = 'my-app'
node.timeout = 30

log.level = debug
log.json = true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	values, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	cfg := Default()
	if err := ApplyFileConfig(cfg, values); err != nil {
		t.Fatalf("ApplyFileConfig() error: %v", err)
	}

	if cfg.Node.URI != "https://node.example.com/graphql" {
		t.Errorf("Node.URI = %q", cfg.Node.URI)
	}
	if cfg.Node.CellSlug != "my-app" {
		t.Errorf("Node.CellSlug = %q, want quotes stripped", cfg.Node.CellSlug)
	}
	if cfg.Node.Timeout != 30 {
		t.Errorf("Node.Timeout = %d, want 30", cfg.Node.Timeout)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	values, err := LoadFile(filepath.Join(t.TempDir(), "nope.conf"))
	if err != nil {
		t.Fatalf("LoadFile() of missing file error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("LoadFile() of missing file = %v, want empty", values)
	}
}

func TestLoadFile_BadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knishio.conf")
	if err := os.WriteFile(path, []byte("not a key value pair\n"), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject lines without =")
	}
}

func TestApplyFileConfig_BadTimeout(t *testing.T) {
	cfg := Default()
	err := ApplyFileConfig(cfg, map[string]string{"node.timeout": "soon"})
	if err == nil {
		t.Error("ApplyFileConfig() should reject non-numeric timeout")
	}
}

func TestApplyFileConfig_UnknownKeyIgnored(t *testing.T) {
	cfg := Default()
	if err := ApplyFileConfig(cfg, map[string]string{"mystery.knob": "9"}); err != nil {
		t.Errorf("unknown keys should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default ok", func(c *Config) {}, false},
		{"empty datadir", func(c *Config) { c.DataDir = "" }, true},
		{"bad scheme", func(c *Config) { c.Node.URI = "ftp://node.example.com" }, true},
		{"no host", func(c *Config) { c.Node.URI = "http://" }, true},
		{"zero timeout", func(c *Config) { c.Node.Timeout = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"https ok", func(c *Config) { c.Node.URI = "https://node.example.com/graphql" }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := Validate(cfg)
			if tc.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags([]string{
		"--node=https://node.example.com/graphql",
		"--cell=my-app",
		"--timeout=5",
		"--log-json",
		"wallet", "address", "alice", "KNISH",
	})
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}

	cfg := Default()
	ApplyFlags(cfg, f)

	if cfg.Node.URI != "https://node.example.com/graphql" {
		t.Errorf("Node.URI = %q", cfg.Node.URI)
	}
	if cfg.Node.CellSlug != "my-app" {
		t.Errorf("Node.CellSlug = %q", cfg.Node.CellSlug)
	}
	if cfg.Node.Timeout != 5 {
		t.Errorf("Node.Timeout = %d", cfg.Node.Timeout)
	}
	if !cfg.Log.JSON {
		t.Error("Log.JSON should be set by --log-json")
	}
	if len(f.Args) != 4 || f.Args[0] != "wallet" {
		t.Errorf("Args = %v, want subcommand and arguments preserved", f.Args)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dataDir := t.TempDir()
	confPath := filepath.Join(dataDir, "knishio.conf")
	content := `node.uri = https://file.example.com/graphql
node.timeout = 30
`
	if err := os.WriteFile(confPath, []byte(content), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	// Flag overrides file; file overrides default.
	cfg, _, err := Load([]string{
		"--datadir=" + dataDir,
		"--node=https://flag.example.com/graphql",
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Node.URI != "https://flag.example.com/graphql" {
		t.Errorf("Node.URI = %q, want flag value", cfg.Node.URI)
	}
	if cfg.Node.Timeout != 30 {
		t.Errorf("Node.Timeout = %d, want file value 30", cfg.Node.Timeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want default", cfg.Log.Level)
	}
}

func TestLoad_CreatesDataDirs(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "fresh")
	cfg, _, err := Load([]string{"--datadir=" + dataDir})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, dir := range []string{cfg.KeystoreDir(), cfg.CacheDir(), cfg.LogsDir()} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
	if _, err := os.Stat(cfg.ConfigFile()); err != nil {
		t.Errorf("default config file not created: %v", err)
	}
}
