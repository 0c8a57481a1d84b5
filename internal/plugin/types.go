// Package plugin discovers and runs external bulb driver plugins.
//
// A plugin is a directory holding a plugin.json manifest and an executable.
// Whenever the bulb power changes, the executable is run with a JSON Request
// on stdin and must print a JSON Response on stdout.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// ActionSetPower is the only action sent to bulb drivers.
const ActionSetPower = "set_power"

// Request is sent to a plugin on stdin.
type Request struct {
	Action  string          `json:"action"`
	Power   string          `json:"power"`
	Level   int             `json:"level"`
	State   string          `json:"state"`
	Fingers int             `json:"fingers"`
	Config  json.RawMessage `json:"config,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
