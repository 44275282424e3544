// Package config provides scenario management for the car simulation.
//
// A scenario is a field size plus a list of cars, each with a name, a
// starting position, a heading and a command string. Scenarios are stored as
// JSON (.json) or YAML (.yaml, .yml) files in a directory; the file name
// without extension is the config ID used to create sessions.
//
//	{
//	  "name": "collision",
//	  "field": {"width": 10, "height": 10},
//	  "cars": [
//	    {"name": "A", "x": 1, "y": 2, "direction": "N", "commands": "FFRFFFFRRL"},
//	    {"name": "B", "x": 7, "y": 8, "direction": "W", "commands": "FFLFFFFFFF"}
//	  ]
//	}
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	scenario, err := manager.LoadConfig("collision")
//	defaultScenario := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// Loaded scenarios are validated and cached. Invalid files are skipped by
// ListConfigs and reported by LoadConfig with every problem found.
package config
