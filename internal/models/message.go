// Package models contains data types and constants for the storefront chat API.
package models

import "time"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message is a single entry in a conversation log.
//
// User messages are immutable once appended. The agent placeholder message is
// mutated in place (Text only) while a stream is active; after the stream
// completes it is frozen like any other message.
type Message struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Sender    Sender        `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	Products  []ProductCard `json:"products,omitempty"`
}

// ProductCard is a product suggestion attached to an agent message.
type ProductCard struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url,omitempty"`
	Category    string  `json:"category,omitempty"`
}
