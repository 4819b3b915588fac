package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if *cfg != *Defaults() {
		t.Fatalf("config = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}

	// 再读一次，读到的是刚写入的文件
	again, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if *again != *cfg {
		t.Fatalf("reread config = %+v, want %+v", again, cfg)
	}
}

func TestReadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"port":"9000","grid_size":12,"tick_ms":250}`)

	cfg, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.GridSize != 12 || cfg.TickInterval() != 250*time.Millisecond {
		t.Fatalf("config = %+v", cfg)
	}
	// 文件里没写的字段保持默认值
	if cfg.Blocksize != 20 || cfg.DBPath != "game.db" {
		t.Fatalf("missing fields not defaulted: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"grid_size":12}`)
	t.Setenv("SNAKE_GRID_SIZE", "16")
	t.Setenv("SNAKE_PORT", "8080")
	t.Setenv("SNAKE_IDLE_MINUTES", "5")

	cfg, err := readConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GridSize != 16 || cfg.Port != "8080" || cfg.IdleTimeout() != 5*time.Minute {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{"grid too small", `{"grid_size":1}`, nil},
		{"zero tick", `{"tick_ms":0}`, nil},
		{"negative blocksize", `{"blocksize":-3}`, nil},
		{"bad env number", `{}`, map[string]string{"SNAKE_TICK_MS": "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			writeFile(t, path, tt.content)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := readConfig(path); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("readConfig error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestReloadAndGetConfigValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"tick_ms":40,"selfpath":"example.com"}`)

	if _, err := Reload(path); err != nil {
		t.Fatal(err)
	}
	if got := GetConfigValue("tick_ms").(int); got != 40 {
		t.Fatalf("tick_ms = %d, want 40", got)
	}
	if got := GetConfigValue("selfpath").(string); got != "example.com" {
		t.Fatalf("selfpath = %q", got)
	}
	if got := GetConfigValue("nope"); got != "" {
		t.Fatalf("unknown key = %v", got)
	}

	// 非法配置不会覆盖当前配置
	writeFile(t, path, `{"grid_size":0}`)
	if _, err := Reload(path); err == nil {
		t.Fatal("Reload accepted invalid config")
	}
	if got := Get().TickMillis; got != 40 {
		t.Fatalf("tick_ms after failed reload = %d, want 40", got)
	}
}
