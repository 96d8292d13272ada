package provider

import (
	"context"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/model"
	"github.com/getmockd/mayhem/pkg/stream"
)

// Middleware applies chaos to any language model it intercepts. Unlike
// WrapModel it resolves the target from the intercepted model on every
// call, so one middleware can serve many models.
type Middleware struct {
	cfg  chaos.Config
	opts []chaos.Option
}

var _ model.Middleware = (*Middleware)(nil)

// NewMiddleware returns a middleware applying cfg.
func NewMiddleware(cfg chaos.Config, opts ...chaos.Option) *Middleware {
	return &Middleware{cfg: cfg.Clone(), opts: opts}
}

// WrapGenerate implements model.Middleware.
func (mw *Middleware) WrapGenerate(ctx context.Context, m model.LanguageModel, opts model.CallOptions, next model.GenerateFunc) (*model.GenerateResult, error) {
	copts := bindOptions(m.ModelID(), mw.opts)
	generate := chaos.Func[model.CallOptions, *model.GenerateResult](next)
	res, err := chaos.Wrap(generate, mw.cfg, copts...)(ctx, opts)
	if err != nil {
		return nil, err
	}
	return postGenerate(ctx, chaos.Bind(copts...), mw.cfg, res), nil
}

// WrapStream implements model.Middleware.
func (mw *Middleware) WrapStream(ctx context.Context, m model.LanguageModel, opts model.CallOptions, next model.StreamFunc) (*model.StreamResult, error) {
	copts := bindOptions(m.ModelID(), mw.opts)
	doStream := chaos.Func[model.CallOptions, *model.StreamResult](next)
	res, err := chaos.Wrap(doStream, mw.cfg, copts...)(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := *res
	out.Stream = stream.Apply(res.Stream, mw.cfg, copts...)
	return &out, nil
}
