package model

import (
	"context"
	"io"
	"sync"
)

// PartType identifies a stream chunk.
type PartType string

// Stream part types.
const (
	PartStreamStart      PartType = "stream-start"
	PartResponseMetadata PartType = "response-metadata"
	PartTextStart        PartType = "text-start"
	PartTextDelta        PartType = "text-delta"
	PartTextEnd          PartType = "text-end"
	PartReasoningStart   PartType = "reasoning-start"
	PartReasoningDelta   PartType = "reasoning-delta"
	PartReasoningEnd     PartType = "reasoning-end"
	PartToolInputStart   PartType = "tool-input-start"
	PartToolInputDelta   PartType = "tool-input-delta"
	PartToolInputEnd     PartType = "tool-input-end"
	PartToolCall         PartType = "tool-call"
	PartToolResult       PartType = "tool-result"
	PartFile             PartType = "file"
	PartSource           PartType = "source"
	PartFinish           PartType = "finish"
	PartRaw              PartType = "raw"
	PartError            PartType = "error"
)

// Part is one chunk of a streamed generation. Which fields are set depends
// on Type: Delta for the *-delta parts, tool fields for tool parts, Usage
// and FinishReason for finish.
type Part struct {
	Type PartType `json:"type"`
	ID   string   `json:"id,omitempty"`

	Delta string `json:"delta,omitempty"`

	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Input      string `json:"input,omitempty"`
	Result     any    `json:"result,omitempty"`

	Usage           *Usage            `json:"usage,omitempty"`
	FinishReason    FinishReason      `json:"finishReason,omitempty"`
	RawFinishReason string            `json:"rawFinishReason,omitempty"`
	Response        *ResponseMetadata `json:"response,omitempty"`
	Warnings        []Warning         `json:"warnings,omitempty"`

	Raw any   `json:"raw,omitempty"`
	Err error `json:"-"`

	ProviderMetadata Metadata `json:"providerMetadata,omitempty"`
}

// IsText reports whether the part carries generated text.
func (p Part) IsText() bool {
	return p.Type == PartTextDelta
}

// ChunkReader yields stream parts one at a time. Recv returns io.EOF after
// the last part; any other error ends the stream abnormally. Close releases
// the underlying stream and may be called at any point.
type ChunkReader interface {
	Recv(ctx context.Context) (Part, error)
	Close() error
}

// SliceReader replays a fixed list of parts.
type SliceReader struct {
	mu     sync.Mutex
	parts  []Part
	next   int
	err    error
	closed bool
}

// NewSliceReader returns a reader over parts.
func NewSliceReader(parts ...Part) *SliceReader {
	return &SliceReader{parts: parts}
}

// FailAfter makes the reader return err once every part was read, instead of
// io.EOF.
func (r *SliceReader) FailAfter(err error) *SliceReader {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return r
}

// Recv implements ChunkReader.
func (r *SliceReader) Recv(ctx context.Context) (Part, error) {
	if err := ctx.Err(); err != nil {
		return Part{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return Part{}, io.ErrClosedPipe
	}
	if r.next >= len(r.parts) {
		if r.err != nil {
			return Part{}, r.err
		}
		return Part{}, io.EOF
	}
	p := r.parts[r.next]
	r.next++
	return p, nil
}

// Close implements ChunkReader.
func (r *SliceReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Delivered returns how many parts were read so far.
func (r *SliceReader) Delivered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
