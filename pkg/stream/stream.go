// Package stream injects chaos into chunked model output.
//
// Apply wraps a model.ChunkReader with up to four stages, in this order:
// a slow-down before each text chunk, per-chunk corruption, a mid-stream
// cut and an override of the finish chunk's usage and finish reason. Only
// text-delta parts are slowed, corrupted or cut; every other part passes
// through those stages untouched. Parts are transformed one at a time as
// they are read, nothing is buffered.
package stream

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/model"
)

// Apply returns src with the streaming knobs of cfg applied. cfg is merged
// over the engine's active config the way chaos.Wrap does; a disabled or
// stream-inert config returns src unchanged.
func Apply(src model.ChunkReader, cfg chaos.Config, opts ...chaos.Option) model.ChunkReader {
	b := chaos.Bind(opts...)
	eff := b.Engine.Effective(cfg.Clone())
	if eff.Disabled || !active(eff) {
		return src
	}
	return &reader{src: src, b: b, cfg: eff}
}

func active(c chaos.Config) bool {
	return !c.SlowTokens.IsZero() || c.CorruptChunks > 0 || c.StreamCut > 0 ||
		c.FinishReason != "" || c.TokenUsage != nil
}

// reader is not safe for concurrent Recv calls, matching the
// model.ChunkReader contract.
type reader struct {
	src model.ChunkReader
	b   chaos.Binding
	cfg chaos.Config

	slow      time.Duration
	slowDrawn bool
	err       error
}

func (r *reader) Recv(ctx context.Context) (model.Part, error) {
	if r.err != nil {
		return model.Part{}, r.err
	}
	p, err := r.src.Recv(ctx)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
		return p, err
	}

	if p.IsText() {
		if err := r.slowDown(ctx); err != nil {
			r.err = err
			return model.Part{}, err
		}
		p = r.corrupt(ctx, p)
		if err := r.cut(ctx); err != nil {
			r.err = err
			_ = r.src.Close()
			return model.Part{}, err
		}
	}

	if p.Type == model.PartFinish {
		p = OverrideFinish(p, r.cfg)
	}
	return p, nil
}

func (r *reader) Close() error {
	return r.src.Close()
}

func (r *reader) slowDown(ctx context.Context) error {
	if r.cfg.SlowTokens.IsZero() {
		return nil
	}
	e := r.b.Engine
	if !r.slowDrawn {
		r.slow = r.cfg.SlowTokens.Draw(e.Random())
		r.slowDrawn = true
		e.Fire(ctx, r.cfg, chaos.Event{Type: chaos.EventSlowTokens, Target: r.b.Target, Delay: r.slow})
	}
	return e.Sleep(ctx, r.slow)
}

func (r *reader) corrupt(ctx context.Context, p model.Part) model.Part {
	e := r.b.Engine
	if p.Delta == "" || !e.Random().Chance(r.cfg.CorruptChunks) {
		return p
	}
	e.Fire(ctx, r.cfg, chaos.Event{Type: chaos.EventCorruptChunk, Target: r.b.Target})
	p.Delta = chaos.CorruptText(e.Random(), p.Delta)
	return p
}

func (r *reader) cut(ctx context.Context) error {
	e := r.b.Engine
	if !e.Random().Chance(r.cfg.StreamCut) {
		return nil
	}
	f := fault.StreamCut()
	e.Fire(ctx, r.cfg, chaos.Event{Type: chaos.EventStreamCut, Target: r.b.Target, Status: f.StatusCode, Err: f})
	return f
}
