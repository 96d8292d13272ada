package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/fault"
	"github.com/getmockd/mayhem/pkg/model"
	"github.com/getmockd/mayhem/pkg/stream"
)

type fakeModel struct {
	id    string
	text  string
	calls atomic.Int32
}

func newFake(id string) *fakeModel {
	return &fakeModel{id: id, text: strings.Repeat("abcdefghij", 10)}
}

func (f *fakeModel) Provider() string { return "fake" }
func (f *fakeModel) ModelID() string  { return f.id }

func (f *fakeModel) Generate(context.Context, model.CallOptions) (*model.GenerateResult, error) {
	f.calls.Add(1)
	return &model.GenerateResult{
		Content: []model.Content{
			{Type: model.ContentText, Text: f.text},
			{Type: model.ContentToolCall, ToolCallID: "call-1", ToolName: "lookup", Input: "{}"},
		},
		FinishReason:     model.FinishStop,
		RawFinishReason:  "stop",
		Usage:            model.Usage{InputTokens: model.Tokens(10), OutputTokens: model.Tokens(20)},
		ProviderMetadata: model.Metadata{"fake": {"region": "eu"}},
		Response:         model.ResponseMetadata{ID: "resp-1", ModelID: f.id},
	}, nil
}

func (f *fakeModel) Stream(context.Context, model.CallOptions) (*model.StreamResult, error) {
	f.calls.Add(1)
	id := uuid.NewString()
	return &model.StreamResult{
		Stream: model.NewSliceReader(
			model.Part{Type: model.PartTextStart, ID: id},
			model.Part{Type: model.PartTextDelta, ID: id, Delta: "Hel"},
			model.Part{Type: model.PartTextDelta, ID: id, Delta: "lo"},
			model.Part{Type: model.PartTextEnd, ID: id},
			model.Part{Type: model.PartFinish, FinishReason: model.FinishStop, Usage: &model.Usage{OutputTokens: model.Tokens(2)}},
		),
		Response: model.ResponseMetadata{Headers: map[string]string{"x-request-id": "abc"}},
	}, nil
}

func (f *fakeModel) Embed(context.Context, model.EmbedOptions) (*model.EmbedResult, error) {
	f.calls.Add(1)
	return &model.EmbedResult{Embeddings: [][]float64{{0.1, 0.2}}}, nil
}

type fakeProvider struct {
	models map[string]*fakeModel
}

func (p *fakeProvider) get(id string) *fakeModel {
	if m, ok := p.models[id]; ok {
		return m
	}
	m := newFake(id)
	p.models[id] = m
	return m
}

func (p *fakeProvider) LanguageModel(id string) (model.LanguageModel, error) {
	return p.get(id), nil
}

func (p *fakeProvider) EmbeddingModel(id string) (model.EmbeddingModel, error) {
	return p.get(id), nil
}

func (p *fakeProvider) ImageModel(string) (model.ImageModel, error) {
	return nil, model.ErrUnsupportedModel
}

func (p *fakeProvider) SpeechModel(string) (model.SpeechModel, error) {
	return nil, model.ErrUnsupportedModel
}

func (p *fakeProvider) TranscriptionModel(string) (model.TranscriptionModel, error) {
	return nil, model.ErrUnsupportedModel
}

func TestWrapModel_Passthrough(t *testing.T) {
	e := chaos.NewEngine()
	base := newFake("gpt-test")
	m := WrapModel(base, chaos.Config{}, chaos.WithEngine(e))

	assert.Equal(t, "fake", m.Provider())
	assert.Equal(t, "gpt-test", m.ModelID())

	res, err := m.Generate(context.Background(), model.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "resp-1", res.Response.ID)
	assert.Equal(t, "eu", res.ProviderMetadata["fake"]["region"])
	assert.Equal(t, base.text, res.Text())
	assert.Equal(t, int64(1), e.Stats().ByTarget["gpt-test"].Calls)
}

func TestWrapModel_ProviderFaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       chaos.Config
		code      fault.Code
		status    int
		retryable bool
	}{
		{"invalid key", chaos.Config{InvalidAPIKey: 1}, fault.CodeAIInvalidAPIKey, 401, false},
		{"quota", chaos.Config{QuotaExceeded: 1}, fault.CodeAIQuotaExceeded, 402, false},
		{"unavailable", chaos.Config{ModelUnavailable: 1}, fault.CodeAIModelUnavailable, 503, true},
		{"context length", chaos.Config{ContextLength: 1}, fault.CodeAIContextLength, 400, false},
		{"content filter", chaos.Config{ContentFilter: 1}, fault.CodeAIContentFilter, 400, false},
		{"empty response", chaos.Config{EmptyResponse: 1}, fault.CodeAIEmptyResponse, 200, false},
		{"rate limit", chaos.Config{RateLimit: chaos.RateLimitKnob{Rate: 1}}, fault.CodeAIRateLimit, 429, true},
		{"overloaded", chaos.Config{Overloaded: 1}, fault.CodeAIOverloaded, 529, true},
		{"fail", chaos.Config{Fail: 1}, fault.CodeFailure, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := newFake("gpt-test")
			m := WrapModel(base, tt.cfg, chaos.WithEngine(chaos.NewEngine()))

			_, err := m.Generate(context.Background(), model.CallOptions{})
			f, ok := fault.As(err)
			require.True(t, ok, "error %v is not a fault", err)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.status, f.StatusCode)
			assert.Equal(t, tt.retryable, f.Retryable)
			assert.Zero(t, base.calls.Load(), "upstream must not be called")

			_, err = m.Stream(context.Background(), model.CallOptions{})
			assert.Equal(t, tt.code, fault.CodeOf(err), "stream path applies the same fault")
		})
	}
}

func TestWrapModel_RateLimitCarriesRetryAfter(t *testing.T) {
	m := WrapModel(newFake("m"), chaos.Config{RateLimit: chaos.RateLimitKnob{Rate: 1, RetryAfter: 5 * time.Second}}, chaos.WithEngine(chaos.NewEngine()))
	_, err := m.Generate(context.Background(), model.CallOptions{})
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, f.RetryAfter)
}

func TestWrapModel_ModelUnavailableCarriesID(t *testing.T) {
	m := WrapModel(newFake("claude-x"), chaos.Config{ModelUnavailable: 1}, chaos.WithEngine(chaos.NewEngine()))
	_, err := m.Generate(context.Background(), model.CallOptions{})
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, "claude-x", f.Data["modelId"])
}

func TestWrapModel_PartialResponse(t *testing.T) {
	e := chaos.NewEngine(chaos.WithSeed(3))
	base := newFake("m")
	m := WrapModel(base, chaos.Config{PartialResponse: 1}, chaos.WithEngine(e))

	for i := 0; i < 20; i++ {
		res, err := m.Generate(context.Background(), model.CallOptions{})
		require.NoError(t, err)

		n := utf8.RuneCountInString(res.Content[0].Text)
		assert.GreaterOrEqual(t, n, 10)
		assert.Less(t, n, 80)
		assert.True(t, strings.HasPrefix(base.text, res.Content[0].Text))
		assert.Equal(t, "lookup", res.Content[1].ToolName, "non-text content is untouched")
	}
}

func TestWrapModel_Overrides(t *testing.T) {
	in := 1
	m := WrapModel(newFake("m"), chaos.Config{
		FinishReason: "length",
		TokenUsage:   &chaos.TokenUsage{InputTokens: &in},
	}, chaos.WithEngine(chaos.NewEngine()))

	res, err := m.Generate(context.Background(), model.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, model.FinishLength, res.FinishReason)
	assert.Empty(t, res.RawFinishReason)
	assert.Equal(t, 1, *res.Usage.InputTokens)
	assert.Equal(t, 20, *res.Usage.OutputTokens)

	sres, err := m.Stream(context.Background(), model.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "abc", sres.Response.Headers["x-request-id"])
	parts, err := stream.Collect(context.Background(), sres.Stream)
	require.NoError(t, err)
	finish := parts[len(parts)-1]
	assert.Equal(t, model.FinishLength, finish.FinishReason)
	assert.Equal(t, 1, *finish.Usage.InputTokens)
	assert.Equal(t, 2, *finish.Usage.OutputTokens)
}

func TestWrapModel_StreamChaos(t *testing.T) {
	m := WrapModel(newFake("m"), chaos.Config{StreamCut: 1}, chaos.WithEngine(chaos.NewEngine()))

	sres, err := m.Stream(context.Background(), model.CallOptions{})
	require.NoError(t, err, "stream cuts happen mid-stream, not at call time")

	parts, err := stream.Collect(context.Background(), sres.Stream)
	assert.ErrorIs(t, err, fault.ErrStreamCut)
	assert.Len(t, parts, 1)
}

func TestWrapProvider_PerModelOverrides(t *testing.T) {
	e := chaos.NewEngine()
	p := WrapProvider(&fakeProvider{models: map[string]*fakeModel{}}, ProviderOptions{
		Config: chaos.Config{FinishReason: "stop"},
		Models: map[string]chaos.Config{"broken": {InvalidAPIKey: 1}},
	}, chaos.WithEngine(e))

	good, err := p.LanguageModel("good")
	require.NoError(t, err)
	_, err = good.Generate(context.Background(), model.CallOptions{})
	require.NoError(t, err)

	broken, err := p.LanguageModel("broken")
	require.NoError(t, err)
	_, err = broken.Generate(context.Background(), model.CallOptions{})
	assert.Equal(t, fault.CodeAIInvalidAPIKey, fault.CodeOf(err))

	emb, err := p.EmbeddingModel("broken")
	require.NoError(t, err)
	_, err = emb.Embed(context.Background(), model.EmbedOptions{Values: []string{"x"}})
	assert.Equal(t, fault.CodeAIInvalidAPIKey, fault.CodeOf(err))

	_, err = p.ImageModel("dall-e")
	assert.ErrorIs(t, err, model.ErrUnsupportedModel)
}

func TestMiddleware(t *testing.T) {
	e := chaos.NewEngine()
	var events []chaos.Event
	e.On(func(ev chaos.Event) {
		if ev.IsChaos() {
			events = append(events, ev)
		}
	})

	base := newFake("gpt-mw")
	m := model.WithMiddleware(base, NewMiddleware(chaos.Config{ContextLength: 1}, chaos.WithEngine(e)))

	_, err := m.Generate(context.Background(), model.CallOptions{})
	assert.Equal(t, fault.CodeAIContextLength, fault.CodeOf(err))
	require.Len(t, events, 1)
	assert.Equal(t, "gpt-mw", events[0].Target)

	pass := model.WithMiddleware(base, NewMiddleware(chaos.Config{StreamCut: 1}, chaos.WithEngine(e)))
	sres, err := pass.Stream(context.Background(), model.CallOptions{})
	require.NoError(t, err)
	_, err = stream.Collect(context.Background(), sres.Stream)
	assert.ErrorIs(t, err, fault.ErrStreamCut)
}

func TestWrapTool(t *testing.T) {
	var runs atomic.Int32
	tool := model.Tool{
		Description: "looks things up",
		Execute: func(_ context.Context, input json.RawMessage) (any, error) {
			runs.Add(1)
			return string(input), nil
		},
	}

	t.Run("passthrough", func(t *testing.T) {
		wrapped := WrapTool("lookup", tool, chaos.Config{}, chaos.WithEngine(chaos.NewEngine()))
		out, err := wrapped.Execute(context.Background(), json.RawMessage(`{"q":1}`))
		require.NoError(t, err)
		assert.Equal(t, `{"q":1}`, out)
		assert.Equal(t, "looks things up", wrapped.Description)
	})

	t.Run("failure", func(t *testing.T) {
		before := runs.Load()
		wrapped := WrapTool("lookup", tool, chaos.Config{ToolFailure: 1}, chaos.WithEngine(chaos.NewEngine()))
		_, err := wrapped.Execute(context.Background(), nil)
		f, ok := fault.As(err)
		require.True(t, ok)
		assert.Equal(t, fault.CodeToolFailure, f.Code)
		assert.Equal(t, "lookup", f.Data["tool"])
		assert.Equal(t, before, runs.Load())
	})

	t.Run("timeout hangs", func(t *testing.T) {
		e := chaos.NewEngine()
		wrapped := WrapTool("lookup", tool, chaos.Config{ToolTimeout: 1}, chaos.WithEngine(e))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := wrapped.Execute(ctx, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.EqualValues(t, 1, e.Stats().Timeouts)
	})

	t.Run("nil execute", func(t *testing.T) {
		wrapped := WrapTool("noop", model.Tool{}, chaos.Config{ToolFailure: 1})
		assert.Nil(t, wrapped.Execute)
	})
}

func TestWrapTools(t *testing.T) {
	e := chaos.NewEngine()
	ok := func(context.Context, json.RawMessage) (any, error) { return "ok", nil }
	tools := WrapTools(model.Tools{
		"a": {Execute: ok},
		"b": {Execute: ok},
	}, chaos.Config{ToolFailure: 1}, chaos.WithEngine(e))

	require.Len(t, tools, 2)
	for name, tool := range tools {
		_, err := tool.Execute(context.Background(), nil)
		f, isFault := fault.As(err)
		require.True(t, isFault)
		assert.Equal(t, name, f.Data["tool"])
	}
	assert.EqualValues(t, 2, e.Stats().Failures)
}

func TestPresets(t *testing.T) {
	names := make([]string, 0, 5)
	for _, p := range Presets() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"realistic", "unstable", "harsh", "nightmare", "apocalypse"}, names)
	assert.Equal(t, 0.02, Preset("realistic").RateLimit.Rate)
	assert.True(t, Preset("missing").IsZero())
}

func TestWrapModel_UpstreamError(t *testing.T) {
	boom := errors.New("upstream 500")
	m := WrapModel(errModel{err: boom}, chaos.Config{}, chaos.WithEngine(chaos.NewEngine()))
	_, err := m.Generate(context.Background(), model.CallOptions{})
	assert.ErrorIs(t, err, boom)
}

type errModel struct{ err error }

func (m errModel) Provider() string { return "err" }
func (m errModel) ModelID() string  { return "err-1" }
func (m errModel) Generate(context.Context, model.CallOptions) (*model.GenerateResult, error) {
	return nil, m.err
}
func (m errModel) Stream(context.Context, model.CallOptions) (*model.StreamResult, error) {
	return nil, m.err
}
