package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"air-firmware/pkg/globals"
)

type Config struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
	v    *viper.Viper
}

var instance *Config
var once sync.Once

// Init initializes the config system and creates config.json if it doesn't exist
func Init(fs afero.Fs) error {
	var err error
	once.Do(func() {
		instance, err = New(fs, globals.ConfigPath)
	})
	return err
}

// Get returns the singleton config instance
func Get() *Config {
	if instance == nil {
		panic("config not initialized - call Init() first")
	}
	return instance
}

// New loads the config at path, creating it on first start
func New(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	c := &Config{fs: fs, path: path, v: v}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	exists, err := afero.Exists(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if !exists {
		return c.createInitialConfig()
	}

	if err := c.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func (c *Config) createInitialConfig() error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to generate device ID: %w", err)
	}

	c.v.Set("id", id.String())
	c.v.Set("firmware_version", globals.FirmwareVersion)

	return c.save()
}

func (c *Config) save() error {
	if err := c.v.WriteConfigAs(c.path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// SetKey sets a config value and persists to disk
func (c *Config) SetKey(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.v.Set(key, value)
	return c.save()
}

// GetKey retrieves a config value
// Returns the value and a boolean indicating if the key exists
func (c *Config) GetKey(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.v.IsSet(key) {
		return nil, false
	}
	return c.v.Get(key), true
}

// GetString returns a string value, empty if unset
func (c *Config) GetString(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v.GetString(key)
}
