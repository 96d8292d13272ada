package stream

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/model"
)

// OverrideUsage returns a fresh usage record taking each count from over
// when set and from orig otherwise. Provider extras in orig are dropped.
func OverrideUsage(over *chaos.TokenUsage, orig model.Usage) model.Usage {
	if over == nil {
		return orig
	}
	out := model.Usage{InputTokens: orig.InputTokens, OutputTokens: orig.OutputTokens}
	if over.InputTokens != nil {
		out.InputTokens = model.Tokens(*over.InputTokens)
	}
	if over.OutputTokens != nil {
		out.OutputTokens = model.Tokens(*over.OutputTokens)
	}
	return out
}

// OverrideFinish applies the finish reason and token usage overrides of
// cfg to a finish part.
func OverrideFinish(p model.Part, cfg chaos.Config) model.Part {
	if cfg.TokenUsage != nil {
		var orig model.Usage
		if p.Usage != nil {
			orig = *p.Usage
		}
		u := OverrideUsage(cfg.TokenUsage, orig)
		p.Usage = &u
	}
	if cfg.FinishReason != "" {
		p.FinishReason = model.FinishReason(cfg.FinishReason)
		p.RawFinishReason = ""
	}
	return p
}

// Collect drains r and closes it. On error it returns the parts read so
// far together with the error.
func Collect(ctx context.Context, r model.ChunkReader) ([]model.Part, error) {
	defer r.Close()
	var parts []model.Part
	for {
		p, err := r.Recv(ctx)
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return parts, err
		}
		parts = append(parts, p)
	}
}

// Text concatenates the deltas of the text parts.
func Text(parts []model.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.IsText() {
			b.WriteString(p.Delta)
		}
	}
	return b.String()
}
