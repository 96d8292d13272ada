package provider

import (
	"context"

	"github.com/getmockd/mayhem/pkg/chaos"
	"github.com/getmockd/mayhem/pkg/model"
)

type embeddingModel struct {
	model.EmbeddingModel
	embed chaos.Func[model.EmbedOptions, *model.EmbedResult]
}

func (m *embeddingModel) Embed(ctx context.Context, opts model.EmbedOptions) (*model.EmbedResult, error) {
	return m.embed(ctx, opts)
}

// WrapEmbeddingModel returns m with cfg applied to every Embed call.
func WrapEmbeddingModel(m model.EmbeddingModel, cfg chaos.Config, opts ...chaos.Option) model.EmbeddingModel {
	return &embeddingModel{
		EmbeddingModel: m,
		embed:          chaos.Wrap(m.Embed, cfg, bindOptions(m.ModelID(), opts)...),
	}
}

type imageModel struct {
	model.ImageModel
	generate chaos.Func[model.ImageOptions, *model.ImageResult]
}

func (m *imageModel) GenerateImage(ctx context.Context, opts model.ImageOptions) (*model.ImageResult, error) {
	return m.generate(ctx, opts)
}

// WrapImageModel returns m with cfg applied to every GenerateImage call.
func WrapImageModel(m model.ImageModel, cfg chaos.Config, opts ...chaos.Option) model.ImageModel {
	return &imageModel{
		ImageModel: m,
		generate:   chaos.Wrap(m.GenerateImage, cfg, bindOptions(m.ModelID(), opts)...),
	}
}

type speechModel struct {
	model.SpeechModel
	generate chaos.Func[model.SpeechOptions, *model.SpeechResult]
}

func (m *speechModel) GenerateSpeech(ctx context.Context, opts model.SpeechOptions) (*model.SpeechResult, error) {
	return m.generate(ctx, opts)
}

// WrapSpeechModel returns m with cfg applied to every GenerateSpeech call.
func WrapSpeechModel(m model.SpeechModel, cfg chaos.Config, opts ...chaos.Option) model.SpeechModel {
	return &speechModel{
		SpeechModel: m,
		generate:    chaos.Wrap(m.GenerateSpeech, cfg, bindOptions(m.ModelID(), opts)...),
	}
}

type transcriptionModel struct {
	model.TranscriptionModel
	transcribe chaos.Func[model.TranscriptionOptions, *model.TranscriptionResult]
}

func (m *transcriptionModel) Transcribe(ctx context.Context, opts model.TranscriptionOptions) (*model.TranscriptionResult, error) {
	return m.transcribe(ctx, opts)
}

// WrapTranscriptionModel returns m with cfg applied to every Transcribe call.
func WrapTranscriptionModel(m model.TranscriptionModel, cfg chaos.Config, opts ...chaos.Option) model.TranscriptionModel {
	return &transcriptionModel{
		TranscriptionModel: m,
		transcribe:         chaos.Wrap(m.Transcribe, cfg, bindOptions(m.ModelID(), opts)...),
	}
}

// ProviderOptions configure WrapProvider. Models holds per-model overrides
// merged over Config for the model id they are keyed by.
type ProviderOptions struct {
	Config chaos.Config            `yaml:"config"`
	Models map[string]chaos.Config `yaml:"models"`
}

func (o ProviderOptions) configFor(id string) chaos.Config {
	over, ok := o.Models[id]
	if !ok {
		return o.Config
	}
	return chaos.Merge(o.Config, over)
}

type wrappedProvider struct {
	p    model.Provider
	po   ProviderOptions
	opts []chaos.Option
}

// WrapProvider returns p with every model it hands out wrapped.
func WrapProvider(p model.Provider, po ProviderOptions, opts ...chaos.Option) model.Provider {
	return &wrappedProvider{p: p, po: po, opts: opts}
}

func (w *wrappedProvider) LanguageModel(id string) (model.LanguageModel, error) {
	m, err := w.p.LanguageModel(id)
	if err != nil {
		return nil, err
	}
	return WrapModel(m, w.po.configFor(id), w.opts...), nil
}

func (w *wrappedProvider) EmbeddingModel(id string) (model.EmbeddingModel, error) {
	m, err := w.p.EmbeddingModel(id)
	if err != nil {
		return nil, err
	}
	return WrapEmbeddingModel(m, w.po.configFor(id), w.opts...), nil
}

func (w *wrappedProvider) ImageModel(id string) (model.ImageModel, error) {
	m, err := w.p.ImageModel(id)
	if err != nil {
		return nil, err
	}
	return WrapImageModel(m, w.po.configFor(id), w.opts...), nil
}

func (w *wrappedProvider) SpeechModel(id string) (model.SpeechModel, error) {
	m, err := w.p.SpeechModel(id)
	if err != nil {
		return nil, err
	}
	return WrapSpeechModel(m, w.po.configFor(id), w.opts...), nil
}

func (w *wrappedProvider) TranscriptionModel(id string) (model.TranscriptionModel, error) {
	m, err := w.p.TranscriptionModel(id)
	if err != nil {
		return nil, err
	}
	return WrapTranscriptionModel(m, w.po.configFor(id), w.opts...), nil
}
