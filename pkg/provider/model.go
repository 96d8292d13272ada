// Package provider wraps model providers with chaos.
//
// Every adapter implements the same model interface it wraps and forwards
// each call through chaos.Wrap with provider-shaped faults, so callers keep
// using the model exactly as before:
//
//	m := provider.WrapModel(openai, provider.Preset("unstable"))
//	res, err := m.Generate(ctx, opts) // may fail with AI_RATE_LIMIT, ...
//
// Language models additionally get post-generation chaos (partial
// responses, finish reason and token usage overrides) and stream chaos via
// the stream package. Identity fields such as the provider name and model
// id are always passed through unchanged.
package provider

import (
	"context"
	"slices"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/model"
	"github.com/getmockd/mayhem/pkg/stream"
)

func bindOptions(id string, opts []chaos.Option) []chaos.Option {
	out := make([]chaos.Option, 0, len(opts)+2)
	out = append(out, chaos.WithTarget(id), chaos.WithProviderFaults())
	return append(out, opts...)
}

type languageModel struct {
	model.LanguageModel
	cfg      chaos.Config
	opts     []chaos.Option
	b        chaos.Binding
	generate chaos.Func[model.CallOptions, *model.GenerateResult]
	stream   chaos.Func[model.CallOptions, *model.StreamResult]
}

// WrapModel returns m with cfg applied to every Generate and Stream call.
// Events and statistics are labelled with the model id unless opts set a
// target.
func WrapModel(m model.LanguageModel, cfg chaos.Config, opts ...chaos.Option) model.LanguageModel {
	opts = bindOptions(m.ModelID(), opts)
	cfg = cfg.Clone()
	return &languageModel{
		LanguageModel: m,
		cfg:           cfg,
		opts:          opts,
		b:             chaos.Bind(opts...),
		generate:      chaos.Wrap(m.Generate, cfg, opts...),
		stream:        chaos.Wrap(m.Stream, cfg, opts...),
	}
}

func (m *languageModel) Generate(ctx context.Context, opts model.CallOptions) (*model.GenerateResult, error) {
	res, err := m.generate(ctx, opts)
	if err != nil {
		return nil, err
	}
	return postGenerate(ctx, m.b, m.cfg, res), nil
}

func (m *languageModel) Stream(ctx context.Context, opts model.CallOptions) (*model.StreamResult, error) {
	res, err := m.stream(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := *res
	out.Stream = stream.Apply(res.Stream, m.cfg, m.opts...)
	return &out, nil
}

// postGenerate applies partial response truncation and result overrides.
// The upstream result is never modified.
func postGenerate(ctx context.Context, b chaos.Binding, cfg chaos.Config, res *model.GenerateResult) *model.GenerateResult {
	e := b.Engine
	eff := e.Effective(cfg)
	if eff.Disabled || res == nil {
		return res
	}

	out := *res
	if e.Random().Chance(eff.PartialResponse) {
		e.Fire(ctx, eff, chaos.Event{Type: chaos.EventPartialResponse, Target: b.Target})
		out.Content = slices.Clone(res.Content)
		for i, c := range out.Content {
			if c.Type == model.ContentText && c.Text != "" {
				out.Content[i].Text = truncate(e, c.Text)
			}
		}
	}
	if eff.FinishReason != "" {
		out.FinishReason = model.FinishReason(eff.FinishReason)
		out.RawFinishReason = ""
	}
	if eff.TokenUsage != nil {
		out.Usage = stream.OverrideUsage(eff.TokenUsage, res.Usage)
	}
	return &out
}

// truncate keeps between a tenth and four fifths of the text's code points.
func truncate(e *chaos.Engine, s string) string {
	runes := []rune(s)
	n := len(runes)
	cut := int(e.Random().Float64()*float64(n)*0.7) + n/10
	return string(runes[:min(cut, n)])
}
