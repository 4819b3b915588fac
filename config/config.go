package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when a loaded configuration cannot run a game.
var ErrInvalidConfig = errors.New("invalid config")

// AppConfig holds the structure of the configuration
type AppConfig struct {
	SelfPath    string `json:"selfpath"`     // 对外访问的地址，用于拼接图片链接
	Port        string `json:"port"`         // 监听端口
	Blocksize   int    `json:"blocksize"`    // 渲染图片时每个格子的像素
	GridSize    int    `json:"grid_size"`    // 地图边长 N
	TickMillis  int    `json:"tick_ms"`      // 每次移动的间隔，毫秒
	DBPath      string `json:"db_path"`      // sqlite 文件
	SkinDir     string `json:"skin_dir"`     // 格子贴图目录
	IdleMinutes int    `json:"idle_minutes"` // 无人操作多久后回收游戏
}

// TickInterval returns the tick cadence as a duration.
func (c *AppConfig) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

// IdleTimeout returns how long an unattended session is kept.
func (c *AppConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleMinutes) * time.Minute
}

// Defaults returns the configuration written when no file exists.
func Defaults() *AppConfig {
	return &AppConfig{
		SelfPath:    "localhost:38870", // Default value
		Port:        "38870",           // Default value
		Blocksize:   20,
		GridSize:    30,
		TickMillis:  100,
		DBPath:      "game.db",
		SkinDir:     "./skins",
		IdleMinutes: 30,
	}
}

var (
	instance *AppConfig
	mu       sync.RWMutex
	once     sync.Once
	loadErr  error
)

// envOverrides maps environment variables onto config fields.
var envOverrides = []struct {
	key string
	set func(c *AppConfig, v string) error
}{
	{"SNAKE_SELFPATH", func(c *AppConfig, v string) error { c.SelfPath = v; return nil }},
	{"SNAKE_PORT", func(c *AppConfig, v string) error { c.Port = v; return nil }},
	{"SNAKE_BLOCKSIZE", intSetter(func(c *AppConfig, n int) { c.Blocksize = n })},
	{"SNAKE_GRID_SIZE", intSetter(func(c *AppConfig, n int) { c.GridSize = n })},
	{"SNAKE_TICK_MS", intSetter(func(c *AppConfig, n int) { c.TickMillis = n })},
	{"SNAKE_DB_PATH", func(c *AppConfig, v string) error { c.DBPath = v; return nil }},
	{"SNAKE_SKIN_DIR", func(c *AppConfig, v string) error { c.SkinDir = v; return nil }},
	{"SNAKE_IDLE_MINUTES", intSetter(func(c *AppConfig, n int) { c.IdleMinutes = n })},
}

func intSetter(set func(*AppConfig, int)) func(*AppConfig, string) error {
	return func(c *AppConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		set(c, n)
		return nil
	}
}

// LoadConfig initializes and returns the instance of AppConfig.
// Values come from the file (created with defaults if missing), then from
// .env and SNAKE_* environment variables.
func LoadConfig(filePath string) (*AppConfig, error) {
	once.Do(func() {
		// Load .env file if available
		if err := godotenv.Load(); err != nil {
			glog.Infof(".env file not found or could not be loaded: %v", err)
		}
		var cfg *AppConfig
		cfg, loadErr = readConfig(filePath)
		if loadErr == nil {
			mu.Lock()
			instance = cfg
			mu.Unlock()
		}
	})
	return Get(), loadErr
}

// Reload re-reads the file and replaces the current configuration. The old
// configuration stays in place when the new one is invalid.
func Reload(filePath string) (*AppConfig, error) {
	cfg, err := readConfig(filePath)
	if err != nil {
		return nil, err
	}
	mu.Lock()
	instance = cfg
	mu.Unlock()
	return Get(), nil
}

// Get returns a copy of the current configuration, or nil before LoadConfig.
func Get() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		return nil
	}
	cfg := *instance
	return &cfg
}

func readConfig(filePath string) (*AppConfig, error) {
	cfg := Defaults()
	// Load the config file if it exists, otherwise create one
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := saveConfig(filePath, cfg); err != nil {
			return nil, err
		}
		glog.Infof("created %s with default values", filePath)
	} else if err := loadConfig(filePath, cfg); err != nil {
		return nil, err
	}

	for _, o := range envOverrides {
		v, ok := os.LookupEnv(o.key)
		if !ok {
			continue
		}
		if err := o.set(cfg, v); err != nil {
			return nil, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, o.key, v, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch {
	case c.GridSize < 2:
		return fmt.Errorf("%w: grid_size %d must be at least 2", ErrInvalidConfig, c.GridSize)
	case c.TickMillis <= 0:
		return fmt.Errorf("%w: tick_ms %d must be positive", ErrInvalidConfig, c.TickMillis)
	case c.Blocksize <= 0:
		return fmt.Errorf("%w: blocksize %d must be positive", ErrInvalidConfig, c.Blocksize)
	case c.Port == "":
		return fmt.Errorf("%w: empty port", ErrInvalidConfig)
	}
	return nil
}

// loadConfig loads the settings from the file
func loadConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decoding %s: %w", filePath, err)
	}
	return nil
}

// saveConfig saves the current settings to the file
func saveConfig(filePath string, cfg *AppConfig) error {
	file, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// GetConfigValue returns the value of the configuration by key
func GetConfigValue(key string) interface{} {
	cfg := Get()
	if cfg == nil {
		return ""
	}
	switch key {
	case "selfpath":
		return cfg.SelfPath
	case "port":
		return cfg.Port
	case "blocksize":
		return cfg.Blocksize
	case "grid_size":
		return cfg.GridSize
	case "tick_ms":
		return cfg.TickMillis
	case "db_path":
		return cfg.DBPath
	case "skin_dir":
		return cfg.SkinDir
	case "idle_minutes":
		return cfg.IdleMinutes
	default:
		return ""
	}
}
