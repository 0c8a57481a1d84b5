package plugin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayusman/yantram/internal/bulb"
)

// Output drives a bulb through a plugin. It implements bulb.Output.
type Output struct {
	plugin   *Plugin
	executor *Executor
	config   json.RawMessage
}

// NewOutput binds plugin to the bulb. config is passed through verbatim on
// every request.
func NewOutput(plugin *Plugin, executor *Executor, config json.RawMessage) *Output {
	return &Output{plugin: plugin, executor: executor, config: config}
}

// Name implements bulb.Output.
func (o *Output) Name() string {
	return "plugin:" + o.plugin.Manifest.Name
}

// Send implements bulb.Output.
func (o *Output) Send(ctx context.Context, s bulb.State) error {
	resp, err := o.executor.Execute(ctx, o.plugin, &Request{
		Action:  ActionSetPower,
		Power:   string(s.Power),
		Level:   s.Level,
		State:   string(s.HandState),
		Fingers: s.Fingers,
		Config:  o.config,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("plugin %s: %s", o.plugin.Manifest.Name, resp.Error)
	}
	return nil
}
