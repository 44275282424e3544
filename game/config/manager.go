package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/game/service"
	"github.com/wricardo/mcp-training/carsim/logging"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = engine.ErrValidation
)

// DefaultConfigName is the scenario used when a session is created without one
const DefaultConfigName = "classic"

// Extensions lists the scenario file extensions, in lookup order
var Extensions = []string{".json", ".yaml", ".yml"}

var log = logging.New("config")

// Manager handles scenario loading and caching
type Manager struct {
	configDir     string
	defaultConfig *engine.ScenarioConfig
	configs       map[string]*engine.ScenarioConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.ScenarioConfig),
	}

	m.defaultConfig = m.resolveDefault()
	return m, nil
}

// LoadConfig loads a scenario by name. The name may carry its extension;
// without one the first existing file in Extensions order wins. Scenarios are
// cached per file, so classic.json and classic.yaml never shadow each other.
func (m *Manager) LoadConfig(name string) (*engine.ScenarioConfig, error) {
	path, err := m.findFile(name)
	if err != nil {
		return nil, err
	}
	file := filepath.Base(path)

	m.mu.RLock()
	config, cached := m.configs[file]
	m.mu.RUnlock()
	if cached {
		return config, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if config, cached := m.configs[file]; cached {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err = engine.DecodeScenario(path, data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, file, err)
	}

	if err := engine.ValidateScenario(config); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	m.configs[file] = config
	log.Debug("scenario loaded", "id", ConfigID(file), "path", path, "cars", len(config.Cars))
	return config, nil
}

// ListConfigs returns information about all valid scenarios, sorted by config ID
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo
	listed := make(map[string]string)

	// ReadDir sorts by name, which matches the Extensions lookup order
	for _, entry := range entries {
		if entry.IsDir() || !IsScenarioFile(entry.Name()) {
			continue
		}

		id := ConfigID(entry.Name())
		if used, ok := listed[id]; ok {
			log.Warn("scenario shadowed by a file with the same id", "file", entry.Name(), "id", id, "used", used)
			continue
		}

		config, err := m.LoadConfig(entry.Name())
		if err != nil {
			log.Warn("skipping invalid scenario", "file", entry.Name(), "err", err)
			continue
		}
		listed[id] = entry.Name()

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    id, // This is the identifier to use for session creation
			Name:        config.Name,
			Description: config.Description,
			Width:       config.Field.Width,
			Height:      config.Field.Height,
			Cars:        len(config.Cars),
		})
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].ConfigID < configs[j].ConfigID })
	return configs, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.ScenarioConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached scenario and resolves the default again
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*engine.ScenarioConfig)
	m.mu.Unlock()

	config := m.resolveDefault()

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig validates a scenario and writes it to disk. The format follows the
// extension of name; names without one are written as JSON.
func (m *Manager) SaveConfig(name string, config *engine.ScenarioConfig) error {
	if err := engine.ValidateScenario(config); err != nil {
		return err
	}

	filename := filepath.Base(name)
	if !IsScenarioFile(filename) {
		filename += ".json"
	}

	var data []byte
	var err error
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".yaml" || ext == ".yml" {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.configDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[filename] = engine.CloneScenario(config)
	m.mu.Unlock()

	log.Info("scenario saved", "file", filename, "cars", len(config.Cars))
	return nil
}

// ConfigID strips the directory and any scenario extension from name
func ConfigID(name string) string {
	base := filepath.Base(name)
	if IsScenarioFile(base) {
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// IsScenarioFile reports whether name has a scenario file extension
func IsScenarioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// findFile resolves a scenario name to a file in the config directory
func (m *Manager) findFile(name string) (string, error) {
	base := filepath.Base(name)

	candidates := []string{base}
	if !IsScenarioFile(base) {
		candidates = candidates[:0]
		for _, ext := range Extensions {
			candidates = append(candidates, base+ext)
		}
	}

	var found []string
	for _, candidate := range candidates {
		path := filepath.Join(m.configDir, candidate)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			found = append(found, path)
		}
	}
	if len(found) == 0 {
		return "", ErrConfigNotFound
	}
	if len(found) > 1 {
		log.Warn("scenario id matches several files, using the first", "id", base,
			"used", filepath.Base(found[0]), "shadowed", filepath.Base(found[1]))
	}
	return found[0], nil
}

// resolveDefault picks classic, then the first valid scenario, then a minimal empty field
func (m *Manager) resolveDefault() *engine.ScenarioConfig {
	if config, err := m.LoadConfig(DefaultConfigName); err == nil {
		return config
	}

	configs, err := m.ListConfigs()
	if err == nil && len(configs) > 0 {
		if config, err := m.LoadConfig(configs[0].Filename); err == nil {
			return config
		}
	}

	log.Debug("no scenario found, using minimal default", "dir", m.configDir)
	return engine.DefaultScenario()
}
