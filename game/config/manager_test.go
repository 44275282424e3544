package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/carsim/game/engine"
	"github.com/wricardo/mcp-training/carsim/logging"
)

func createValidConfig() *engine.ScenarioConfig {
	return &engine.ScenarioConfig{
		Name:        "Test Config",
		Description: "Test scenario",
		Field:       engine.FieldConfig{Width: 10, Height: 10},
		Cars: []engine.CarConfig{
			{Name: "A", X: 1, Y: 2, Direction: "N", Commands: "FFRFFFFRRL"},
			{Name: "B", X: 7, Y: 8, Direction: "W", Commands: "FFLFFFFFFF"},
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.ScenarioConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRaw(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeConfigFile(t, dir, "classic", createValidConfig())

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Test Config" {
			t.Errorf("Expected classic as default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory uses minimal default", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil || def.Field.Width != 10 || len(def.Cars) != 0 {
			t.Errorf("Expected minimal 10x10 default, got %+v", def)
		}
	})

	t.Run("first valid scenario when classic is missing", func(t *testing.T) {
		dir := t.TempDir()
		other := createValidConfig()
		other.Name = "Other"
		writeConfigFile(t, dir, "other", other)

		manager, _ := NewManager(dir)
		if manager.GetDefault().Name != "Other" {
			t.Errorf("Expected Other as default, got %s", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "pair", createValidConfig())
	writeRaw(t, dir, "yamlish.yaml", "name: yamlish\nfield:\n  width: 4\n  height: 4\ncars:\n  - name: Z\n    x: 3\n    y: 3\n    direction: s\n    commands: fff\n")
	writeRaw(t, dir, "broken.json", `{"name": "broken", "field": {"width": 2, "height": 2}, "cars": [{"name": "A", "x": 5, "y": 5, "direction": "N", "commands": "F"}]}`)
	writeRaw(t, dir, "malformed.json", `{"name": `)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("pair")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if len(config.Cars) != 2 {
			t.Errorf("Expected 2 cars, got %d", len(config.Cars))
		}
	})

	t.Run("load with extension", func(t *testing.T) {
		if _, err := manager.LoadConfig("pair.json"); err != nil {
			t.Errorf("Failed to load config with extension: %v", err)
		}
	})

	t.Run("load yaml", func(t *testing.T) {
		config, err := manager.LoadConfig("yamlish")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if config.Cars[0].Name != "Z" || config.Field.Height != 4 {
			t.Errorf("Unexpected scenario %+v", config)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		first, _ := manager.LoadConfig("pair")
		second, _ := manager.LoadConfig("pair")
		if first != second {
			t.Error("Expected cached config to be returned")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		if _, err := manager.LoadConfig("nope"); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		if _, err := manager.LoadConfig("malformed"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("path components are ignored", func(t *testing.T) {
		if _, err := manager.LoadConfig("../../pair"); err != nil {
			t.Errorf("Expected name to resolve inside the config dir, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "b_pair", createValidConfig())
	writeRaw(t, dir, "a_small.yml", "name: small\nfield:\n  width: 3\n  height: 2\ncars: []\n")
	writeRaw(t, dir, "invalid.json", `{"name": "", "field": {"width": 0, "height": 0}}`)
	writeRaw(t, dir, "notes.txt", "not a scenario")
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	manager, _ := NewManager(dir)

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 2 {
		t.Fatalf("Expected 2 configs, got %d", len(configs))
	}

	if configs[0].ConfigID != "a_small" || configs[0].Width != 3 || configs[0].Cars != 0 {
		t.Errorf("Unexpected first config %+v", configs[0])
	}
	if configs[1].ConfigID != "b_pair" || configs[1].Filename != "b_pair.json" || configs[1].Cars != 2 {
		t.Errorf("Unexpected second config %+v", configs[1])
	}
}

func TestManager_SameIDDifferentFormats(t *testing.T) {
	var logs bytes.Buffer
	logging.Configure(&logs, false)
	t.Cleanup(logging.Discard)

	dir := t.TempDir()
	fromJSON := createValidConfig()
	fromJSON.Name = "from json"
	writeConfigFile(t, dir, "classic", fromJSON)
	writeRaw(t, dir, "classic.yaml", "name: from yaml\nfield:\n  width: 4\n  height: 4\ncars: []\n")

	manager, _ := NewManager(dir)

	yamlFirst, err := manager.LoadConfig("classic.yaml")
	if err != nil || yamlFirst.Name != "from yaml" {
		t.Fatalf("Expected the yaml file, got %+v (err %v)", yamlFirst, err)
	}
	byID, err := manager.LoadConfig("classic")
	if err != nil || byID.Name != "from json" {
		t.Errorf("Expected the bare id to resolve to classic.json despite the cached yaml, got %+v (err %v)", byID, err)
	}
	if again, _ := manager.LoadConfig("classic.yaml"); again != yamlFirst {
		t.Error("Expected classic.yaml to stay cached on its own")
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 1 || configs[0].Filename != "classic.json" {
		t.Fatalf("Expected only classic.json to be listed, got %+v", configs)
	}

	for _, expected := range []string{
		`msg="scenario shadowed by a file with the same id"`,
		"file=classic.yaml",
		"used=classic.json",
	} {
		if !strings.Contains(logs.String(), expected) {
			t.Errorf("Expected %s in logs:\n%s", expected, logs.String())
		}
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	t.Run("json", func(t *testing.T) {
		if err := manager.SaveConfig("saved", createValidConfig()); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
			t.Errorf("Expected saved.json on disk: %v", err)
		}
		loaded, err := manager.LoadConfig("saved")
		if err != nil || len(loaded.Cars) != 2 {
			t.Errorf("Expected saved config to load, got %v", err)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		if err := manager.SaveConfig("saved_yaml.yaml", createValidConfig()); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}
		decoded, err := engine.LoadScenario(filepath.Join(dir, "saved_yaml.yaml"))
		if err != nil {
			t.Fatalf("Failed to decode saved yaml: %v", err)
		}
		if decoded.Cars[1].Commands != "FFLFFFFFFF" {
			t.Errorf("Unexpected decoded scenario %+v", decoded)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		bad := createValidConfig()
		bad.Cars[1].Name = "A"
		if err := manager.SaveConfig("bad", bad); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Invalid scenario must not be written")
		}
	})
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())

	manager, _ := NewManager(dir)
	if _, err := manager.LoadConfig("classic"); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	updated := createValidConfig()
	updated.Name = "Updated"
	writeConfigFile(t, dir, "classic", updated)

	manager.RefreshCache()

	config, err := manager.LoadConfig("classic")
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	if config.Name != "Updated" || manager.GetDefault().Name != "Updated" {
		t.Errorf("Expected refreshed config, got %s", config.Name)
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "other", createValidConfig())
	manager, _ := NewManager(dir)

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigID(t *testing.T) {
	tests := map[string]string{
		"classic":          "classic",
		"classic.json":     "classic",
		"dir/head_on.yaml": "head_on",
		"pileup.YML":       "pileup",
		"notes.txt":        "notes.txt",
	}
	for input, expected := range tests {
		if got := ConfigID(input); got != expected {
			t.Errorf("ConfigID(%q) = %q, expected %q", input, got, expected)
		}
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one", "two", "three"} {
		writeConfigFile(t, dir, name, createValidConfig())
	}
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		for _, name := range []string{"one", "two", "three"} {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if _, err := manager.LoadConfig(name); err != nil {
					errs <- err
				}
			}(name)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}

func TestShippedScenarios(t *testing.T) {
	manager, err := NewManager(filepath.Join("..", "..", "configs"))
	if err != nil {
		t.Fatalf("Failed to open configs directory: %v", err)
	}

	configs, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configs) != 5 {
		t.Errorf("Expected 5 shipped scenarios, got %d", len(configs))
	}
	if manager.GetDefault().Name != "classic" {
		t.Errorf("Expected classic default, got %s", manager.GetDefault().Name)
	}
}
