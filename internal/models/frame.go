package models

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// FrameType tags the three recognized stream frame shapes.
type FrameType string

const (
	FrameChunk    FrameType = "chunk"
	FrameComplete FrameType = "complete"
	FrameError    FrameType = "error"
)

// StreamFrame is one newline-delimited unit of the agent streaming protocol.
// Exactly one of the payload fields below is meaningful, selected by Type.
type StreamFrame struct {
	Type FrameType `json:"type"`

	// Chunk
	Content string `json:"content,omitempty"`

	// Complete
	FinalText   string        `json:"final_text,omitempty"`
	Products    []ProductCard `json:"products,omitempty"`
	CartSummary *CartSummary  `json:"cart_summary,omitempty"`

	// Error
	Message string `json:"message,omitempty"`
}

// Terminal reports whether this frame ends the stream.
func (f *StreamFrame) Terminal() bool {
	return f.Type == FrameComplete || f.Type == FrameError
}

// ParseFrame parses a single wire line into a StreamFrame. The type tag is
// sniffed with gjson before unmarshaling so an unknown shape can be reported
// without a partial decode.
func ParseFrame(line []byte) (*StreamFrame, error) {
	if !gjson.ValidBytes(line) {
		return nil, fmt.Errorf("line is not valid JSON")
	}

	tag := gjson.GetBytes(line, "type")
	if !tag.Exists() {
		return nil, fmt.Errorf("frame has no type tag")
	}

	switch FrameType(tag.String()) {
	case FrameChunk, FrameComplete, FrameError:
	default:
		return nil, fmt.Errorf("unknown frame type %q", tag.String())
	}

	var frame StreamFrame
	if err := json.Unmarshal(line, &frame); err != nil {
		return nil, fmt.Errorf("failed to decode %s frame: %w", tag.String(), err)
	}

	return &frame, nil
}
