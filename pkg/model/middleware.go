package model

import "context"

// GenerateFunc performs the wrapped one-shot generation.
type GenerateFunc func(ctx context.Context, opts CallOptions) (*GenerateResult, error)

// StreamFunc performs the wrapped streaming generation.
type StreamFunc func(ctx context.Context, opts CallOptions) (*StreamResult, error)

// Middleware intercepts the calls of a language model.
type Middleware interface {
	WrapGenerate(ctx context.Context, m LanguageModel, opts CallOptions, next GenerateFunc) (*GenerateResult, error)
	WrapStream(ctx context.Context, m LanguageModel, opts CallOptions, next StreamFunc) (*StreamResult, error)
}

// WithMiddleware returns m with mw applied. The first middleware is the
// outermost.
func WithMiddleware(m LanguageModel, mw ...Middleware) LanguageModel {
	for i := len(mw) - 1; i >= 0; i-- {
		m = &middlewareModel{LanguageModel: m, mw: mw[i]}
	}
	return m
}

type middlewareModel struct {
	LanguageModel
	mw Middleware
}

func (m *middlewareModel) Generate(ctx context.Context, opts CallOptions) (*GenerateResult, error) {
	return m.mw.WrapGenerate(ctx, m.LanguageModel, opts, m.LanguageModel.Generate)
}

func (m *middlewareModel) Stream(ctx context.Context, opts CallOptions) (*StreamResult, error) {
	return m.mw.WrapStream(ctx, m.LanguageModel, opts, m.LanguageModel.Stream)
}
