package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/model"
)

// WrapTool returns tool with the toolFailure, toolTimeout and delay knobs
// of cfg applied to every execution. A firing toolTimeout hangs until ctx
// ends.
func WrapTool(name string, tool model.Tool, cfg chaos.Config, opts ...chaos.Option) model.Tool {
	if tool.Execute == nil {
		return tool
	}
	b := chaos.Bind(append([]chaos.Option{chaos.WithTarget(name)}, opts...)...)
	cfg = cfg.Clone()
	exec := tool.Execute

	tool.Execute = func(ctx context.Context, input json.RawMessage) (any, error) {
		e := b.Engine
		eff := e.Effective(cfg)
		if eff.Disabled {
			return exec(ctx, input)
		}
		rng := e.Random()
		start := time.Now()

		if rng.Chance(eff.ToolFailure) {
			f := fault.ToolFailure(name)
			e.Fire(ctx, eff, chaos.Event{Type: chaos.EventToolFailure, Target: b.Target, Err: f})
			e.RecordCall(ctx, b.Target, time.Since(start), f)
			return nil, f
		}
		if rng.Chance(eff.ToolTimeout) {
			f := fault.ToolTimeout(name)
			e.Fire(ctx, eff, chaos.Event{Type: chaos.EventToolTimeout, Target: b.Target, Status: f.StatusCode})
			e.RecordCall(ctx, b.Target, -1, f)
			return nil, e.Hang(ctx)
		}
		if d := eff.Delay.Draw(rng); d > 0 {
			e.Fire(ctx, eff, chaos.Event{Type: chaos.EventDelay, Target: b.Target, Delay: d})
			if err := e.Sleep(ctx, d); err != nil {
				return nil, err
			}
		}

		out, err := exec(ctx, input)
		e.RecordCall(ctx, b.Target, time.Since(start), err)
		return out, err
	}
	return tool
}

// WrapTools wraps every tool in tools, labelling each by its name.
func WrapTools(tools model.Tools, cfg chaos.Config, opts ...chaos.Option) model.Tools {
	out := make(model.Tools, len(tools))
	for name, tool := range tools {
		out[name] = WrapTool(name, tool, cfg, opts...)
	}
	return out
}
