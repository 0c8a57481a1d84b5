package plugin

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// scriptPlugin writes an executable shell script and returns a Plugin for it.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	plugin := scriptPlugin(t, "ok-plugin", `#!/bin/sh
echo '{"success":true,"data":{"message":"hello world"}}'
`)

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{Action: ActionSetPower})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}

	var data map[string]interface{}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}
	if data["message"] != "hello world" {
		t.Errorf("expected message 'hello world', got %v", data["message"])
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	plugin := scriptPlugin(t, "echo-plugin", `#!/bin/sh
INPUT=$(cat)
echo "{\"success\":true,\"data\":{\"received\":$INPUT}}"
`)

	request := &Request{
		Action:  ActionSetPower,
		Power:   "half",
		Level:   50,
		State:   "half-open",
		Fingers: 3,
		Config:  json.RawMessage(`{"room":"study"}`),
	}

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, request)
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var data struct {
		Received Request `json:"received"`
	}
	if err := json.Unmarshal(response.Data, &data); err != nil {
		t.Fatalf("failed to unmarshal response data: %v", err)
	}

	got := data.Received
	if got.Action != ActionSetPower || got.Power != "half" || got.Level != 50 || got.State != "half-open" || got.Fingers != 3 {
		t.Errorf("plugin received %+v", got)
	}
	if string(got.Config) != `{"room":"study"}` {
		t.Errorf("config = %s", got.Config)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 5
echo '{"success":true}'
`)

	start := time.Now()
	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), plugin, &Request{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("timeout took too long: %v", time.Since(start))
	}
}

func TestExecutor_ContextCancel(t *testing.T) {
	plugin := scriptPlugin(t, "slow-plugin", `#!/bin/sh
sleep 5
`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewExecutor(5*time.Second).Execute(ctx, plugin, &Request{}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
		wantMsg string
	}{
		{
			name: "error response",
			script: `#!/bin/sh
echo '{"success":false,"error":"bulb unreachable"}'
`,
			wantMsg: "bulb unreachable",
		},
		{
			name: "invalid json",
			script: `#!/bin/sh
echo 'not json'
`,
			wantErr: true,
		},
		{
			name: "non-zero exit",
			script: `#!/bin/sh
echo "boom" >&2
exit 3
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plugin := scriptPlugin(t, "failing", tt.script)
			resp, err := NewExecutor(5*time.Second).Execute(context.Background(), plugin, &Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if resp.Success || resp.Error != tt.wantMsg {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}
