package model

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedModel is returned by a Provider that cannot supply the
// requested model kind.
var ErrUnsupportedModel = errors.New("unsupported model kind")

// FinishReason is the unified reason a generation stopped.
type FinishReason string

// Finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content-filter"
	FinishToolCalls     FinishReason = "tool-calls"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
	FinishUnknown       FinishReason = "unknown"
)

// Usage reports token counts. Nil counts are unknown.
type Usage struct {
	InputTokens  *int           `json:"inputTokens,omitempty"`
	OutputTokens *int           `json:"outputTokens,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// Tokens returns a pointer to n for Usage literals.
func Tokens(n int) *int { return &n }

// Metadata is provider-specific data keyed by provider name.
type Metadata map[string]map[string]any

// ContentType identifies a Content item.
type ContentType string

// Content types.
const (
	ContentText       ContentType = "text"
	ContentReasoning  ContentType = "reasoning"
	ContentFile       ContentType = "file"
	ContentToolCall   ContentType = "tool-call"
	ContentToolResult ContentType = "tool-result"
	ContentSource     ContentType = "source"
)

// Content is one item of a generated response or a prompt message.
type Content struct {
	Type ContentType `json:"type"`

	// text, reasoning
	Text string `json:"text,omitempty"`

	// file
	MediaType string `json:"mediaType,omitempty"`
	Data      []byte `json:"data,omitempty"`

	// tool-call, tool-result
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Input      string `json:"input,omitempty"`
	Result     any    `json:"result,omitempty"`
	IsError    bool   `json:"isError,omitempty"`

	// source
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`

	ProviderMetadata Metadata `json:"providerMetadata,omitempty"`
}

// Role is the author of a prompt message.
type Role string

// Roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one prompt turn.
type Message struct {
	Role    Role      `json:"role"`
	Content []Content `json:"content"`
}

// ToolDefinition describes a function tool offered to the model.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// CallOptions are the inputs to Generate and Stream.
type CallOptions struct {
	Prompt          []Message         `json:"prompt"`
	MaxOutputTokens int               `json:"maxOutputTokens,omitempty"`
	Temperature     *float64          `json:"temperature,omitempty"`
	StopSequences   []string          `json:"stopSequences,omitempty"`
	Seed            *int64            `json:"seed,omitempty"`
	Tools           []ToolDefinition  `json:"tools,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	ProviderOptions Metadata          `json:"providerOptions,omitempty"`
}

// Warning is a non-fatal provider notice.
type Warning struct {
	Type    string `json:"type"`
	Feature string `json:"feature,omitempty"`
	Message string `json:"message,omitempty"`
}

// ResponseMetadata identifies the upstream response.
type ResponseMetadata struct {
	ID        string            `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp,omitempty"`
	ModelID   string            `json:"modelId,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

// GenerateResult is the outcome of a one-shot generation.
type GenerateResult struct {
	Content          []Content        `json:"content"`
	FinishReason     FinishReason     `json:"finishReason"`
	RawFinishReason  string           `json:"rawFinishReason,omitempty"`
	Usage            Usage            `json:"usage"`
	ProviderMetadata Metadata         `json:"providerMetadata,omitempty"`
	Response         ResponseMetadata `json:"response"`
	Warnings         []Warning        `json:"warnings,omitempty"`
}

// Text concatenates the text content items.
func (r *GenerateResult) Text() string {
	var out []byte
	for _, c := range r.Content {
		if c.Type == ContentText {
			out = append(out, c.Text...)
		}
	}
	return string(out)
}

// StreamResult carries the chunk stream of a streaming generation.
type StreamResult struct {
	Stream   ChunkReader      `json:"-"`
	Response ResponseMetadata `json:"response"`
}

// LanguageModel generates text once or as a stream.
type LanguageModel interface {
	Provider() string
	ModelID() string
	Generate(ctx context.Context, opts CallOptions) (*GenerateResult, error)
	Stream(ctx context.Context, opts CallOptions) (*StreamResult, error)
}
