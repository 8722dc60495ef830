package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Defaults are the service-wide values applied to any run setting the
// YAML file leaves unset.
type Defaults struct {
	BatchSize           int
	SimilarityThreshold float64
	MaxPhotos           int
}

type Cache struct {
	runsDir  string
	defaults Defaults
	cache    map[string]*RunConfig
	mu       sync.RWMutex
}

func NewCache(runsDir string, defaults Defaults) *Cache {
	return &Cache{
		runsDir:  runsDir,
		defaults: defaults,
		cache:    make(map[string]*RunConfig),
	}
}

// Run loads every run config in the runs directory into the cache. A
// missing directory is not an error, the service just has no runs yet.
func (c *Cache) Run() error {
	if _, err := os.Stat(c.runsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.runsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		runName := strings.TrimSuffix(filepath.Base(file), ".yml")

		runConfig, err := c.LoadConfig(runName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Run configuration loaded", "run", runName, "enabled", runConfig.Settings.Enabled, "venues", len(runConfig.Venues))
	}

	return nil
}

func (c *Cache) LoadConfig(runName string) (*RunConfig, error) {
	configFile := filepath.Join(c.runsDir, runName+".yml")
	runConfig, err := c.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	runConfig.Name = runName

	if err := c.validateConfig(runConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[runConfig.Name] = runConfig

	return runConfig, nil
}

func (c *Cache) GetConfig(runName string) (*RunConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	runConfig, ok := c.cache[runName]
	if !ok {
		return nil, fmt.Errorf("run config with name '%s' not found", runName)
	}
	return runConfig, nil
}

func (c *Cache) GetConfigs() map[string]*RunConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	configsCopy := make(map[string]*RunConfig, len(c.cache))
	for k, v := range c.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

func (c *Cache) GetEnabledConfigs() map[string]*RunConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	enabledConfigs := make(map[string]*RunConfig)
	for k, v := range c.cache {
		if v.Settings.Enabled {
			enabledConfigs[k] = v
		}
	}
	return enabledConfigs
}

func (c *Cache) GetConfigCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func (c *Cache) parseConfig(configFile string) (*RunConfig, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var runConfig RunConfig
	if err := yaml.Unmarshal(data, &runConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if runConfig.Settings.BatchSize == 0 {
		runConfig.Settings.BatchSize = c.defaults.BatchSize
	}
	if runConfig.Settings.SimilarityThreshold == 0 {
		runConfig.Settings.SimilarityThreshold = c.defaults.SimilarityThreshold
	}
	if runConfig.Settings.MaxPhotos == 0 {
		runConfig.Settings.MaxPhotos = c.defaults.MaxPhotos
	}

	return &runConfig, nil
}

func (c *Cache) validateConfig(runConfig *RunConfig) error {
	if runConfig == nil {
		return fmt.Errorf("runConfig is nil")
	}

	if runConfig.Name == "" {
		return fmt.Errorf("run name is required")
	}
	if len(runConfig.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	for i, venue := range runConfig.Venues {
		if strings.TrimSpace(venue) == "" {
			return fmt.Errorf("venue at index %d is empty", i)
		}
	}

	if runConfig.Settings.BatchSize < 0 {
		return fmt.Errorf("batch size must be non-negative")
	}
	if runConfig.Settings.MaxPhotos < 0 {
		return fmt.Errorf("max photos must be non-negative")
	}
	if runConfig.Settings.SimilarityThreshold < 0 || runConfig.Settings.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be between 0 and 1")
	}

	return nil
}
