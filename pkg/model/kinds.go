package model

import (
	"context"
	"encoding/json"
)

// EmbedOptions are the inputs to Embed.
type EmbedOptions struct {
	Values          []string          `json:"values"`
	Headers         map[string]string `json:"headers,omitempty"`
	ProviderOptions Metadata          `json:"providerOptions,omitempty"`
}

// EmbedResult holds one embedding per input value.
type EmbedResult struct {
	Embeddings       [][]float64 `json:"embeddings"`
	Tokens           int         `json:"tokens,omitempty"`
	ProviderMetadata Metadata    `json:"providerMetadata,omitempty"`
	Warnings         []Warning   `json:"warnings,omitempty"`
}

// EmbeddingModel turns text into vectors.
type EmbeddingModel interface {
	Provider() string
	ModelID() string
	Embed(ctx context.Context, opts EmbedOptions) (*EmbedResult, error)
}

// ImageOptions are the inputs to an image generation.
type ImageOptions struct {
	Prompt          string   `json:"prompt"`
	N               int      `json:"n,omitempty"`
	Size            string   `json:"size,omitempty"`
	ProviderOptions Metadata `json:"providerOptions,omitempty"`
}

// ImageResult holds generated images.
type ImageResult struct {
	Images           [][]byte         `json:"images"`
	MediaType        string           `json:"mediaType,omitempty"`
	Response         ResponseMetadata `json:"response"`
	ProviderMetadata Metadata         `json:"providerMetadata,omitempty"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// ImageModel generates images from a prompt.
type ImageModel interface {
	Provider() string
	ModelID() string
	GenerateImage(ctx context.Context, opts ImageOptions) (*ImageResult, error)
}

// SpeechOptions are the inputs to a speech synthesis.
type SpeechOptions struct {
	Text            string   `json:"text"`
	Voice           string   `json:"voice,omitempty"`
	OutputFormat    string   `json:"outputFormat,omitempty"`
	ProviderOptions Metadata `json:"providerOptions,omitempty"`
}

// SpeechResult holds synthesized audio.
type SpeechResult struct {
	Audio            []byte           `json:"audio"`
	Response         ResponseMetadata `json:"response"`
	ProviderMetadata Metadata         `json:"providerMetadata,omitempty"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// SpeechModel synthesizes audio from text.
type SpeechModel interface {
	Provider() string
	ModelID() string
	GenerateSpeech(ctx context.Context, opts SpeechOptions) (*SpeechResult, error)
}

// TranscriptionOptions are the inputs to a transcription.
type TranscriptionOptions struct {
	Audio           []byte   `json:"audio"`
	MediaType       string   `json:"mediaType"`
	ProviderOptions Metadata `json:"providerOptions,omitempty"`
}

// TranscriptionResult holds transcribed text.
type TranscriptionResult struct {
	Text             string           `json:"text"`
	Language         string           `json:"language,omitempty"`
	DurationSeconds  float64          `json:"durationSeconds,omitempty"`
	Response         ResponseMetadata `json:"response"`
	ProviderMetadata Metadata         `json:"providerMetadata,omitempty"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// TranscriptionModel turns audio into text.
type TranscriptionModel interface {
	Provider() string
	ModelID() string
	Transcribe(ctx context.Context, opts TranscriptionOptions) (*TranscriptionResult, error)
}

// Provider hands out models by id. Methods for kinds the provider does not
// offer return ErrUnsupportedModel.
type Provider interface {
	LanguageModel(id string) (LanguageModel, error)
	EmbeddingModel(id string) (EmbeddingModel, error)
	ImageModel(id string) (ImageModel, error)
	SpeechModel(id string) (SpeechModel, error)
	TranscriptionModel(id string) (TranscriptionModel, error)
}

// ToolFunc executes a tool call with the model-provided JSON input.
type ToolFunc func(ctx context.Context, input json.RawMessage) (any, error)

// Tool is a function the model may call.
type Tool struct {
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
	Execute     ToolFunc       `json:"-"`
}

// Tools maps tool names to tools.
type Tools map[string]Tool
