// Package main provides a bulb driver plugin that renders power changes as
// a text gauge. It is useful for checking the plugin pipeline without
// hardware.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action  string          `json:"action"`
	Power   string          `json:"power"`
	Level   int             `json:"level"`
	State   string          `json:"state"`
	Fingers int             `json:"fingers"`
	Config  json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-installation plugin configuration.
type Config struct {
	File  string `json:"file"`
	Width int    `json:"width"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "set_power" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg := Config{File: "bulb.log", Width: 20}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	line := render(req, cfg.Width)
	if err := appendLine(cfg.File, line); err != nil {
		writeErrorResponse(err.Error())
		return
	}

	data, _ := json.Marshal(map[string]string{"rendered": line})
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// render draws a gauge such as "[##########----------]  50% half (half-open, 3 fingers)".
func render(req Request, width int) string {
	if width <= 0 {
		width = 20
	}
	level := req.Level
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}
	filled := width * level / 100
	gauge := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("%s [%s] %3d%% %s (%s, %d fingers)",
		time.Now().Format(time.RFC3339), gauge, level, req.Power, req.State, req.Fingers)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, line)
	return err
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
