// Package history exports fetched conversation logs to shareable formats.
// The backend owns the persisted history; this package only reshapes what
// the client fetched.
package history

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diogo/shopchat/internal/models"
)

// ExportFormat represents the format for exporting conversations
type ExportFormat string

const (
	ExportFormatMarkdown ExportFormat = "markdown"
	ExportFormatJSON     ExportFormat = "json"
)

// ExportOptions configures how conversations are exported
type ExportOptions struct {
	Format          ExportFormat
	IncludeProducts bool // Include product suggestions attached to agent replies
}

// DefaultExportOptions returns sensible defaults for export
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		Format:          ExportFormatMarkdown,
		IncludeProducts: true,
	}
}

// ExportToMarkdown renders a session's message log as a Markdown transcript
func ExportToMarkdown(sessionID string, messages []models.Message) string {
	return ExportToMarkdownWithOptions(sessionID, messages, DefaultExportOptions())
}

// ExportToMarkdownWithOptions renders a Markdown transcript with options
func ExportToMarkdownWithOptions(sessionID string, messages []models.Message, opts ExportOptions) string {
	var sb strings.Builder

	sb.WriteString("# Shopping Chat Transcript\n\n")
	sb.WriteString("**Session:** ")
	sb.WriteString(sessionID)
	sb.WriteString("\n")
	sb.WriteString("**Exported:** ")
	sb.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", len(messages)))
	sb.WriteString("\n\n---\n\n")

	for i, msg := range messages {
		role := "You"
		if msg.Sender == models.SenderAgent {
			role = "Shop Agent"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")

		sb.WriteString(msg.Text)
		sb.WriteString("\n")

		if opts.IncludeProducts && len(msg.Products) > 0 {
			sb.WriteString("\n**Suggested products:**\n\n")
			for _, card := range msg.Products {
				sb.WriteString(fmt.Sprintf("- %s — ₹%.2f", card.Name, card.Price))
				if card.Category != "" {
					sb.WriteString(" (" + card.Category + ")")
				}
				sb.WriteString("\n")
			}
		}

		if i < len(messages)-1 {
			sb.WriteString("\n---\n\n")
		}
	}

	return sb.String()
}

// ExportToJSON renders a session's message log as indented JSON
func ExportToJSON(sessionID string, messages []models.Message) ([]byte, error) {
	return ExportToJSONWithOptions(sessionID, messages, DefaultExportOptions())
}

// ExportToJSONWithOptions renders JSON with options
func ExportToJSONWithOptions(sessionID string, messages []models.Message, opts ExportOptions) ([]byte, error) {
	type ExportMessage struct {
		Sender    string               `json:"sender"`
		Text      string               `json:"text"`
		Timestamp time.Time            `json:"timestamp"`
		Products  []models.ProductCard `json:"products,omitempty"`
	}

	type ExportTranscript struct {
		SessionID  string          `json:"session_id"`
		ExportedAt time.Time       `json:"exported_at"`
		Messages   []ExportMessage `json:"messages"`
	}

	export := ExportTranscript{
		SessionID:  sessionID,
		ExportedAt: time.Now(),
		Messages:   make([]ExportMessage, len(messages)),
	}

	for i, msg := range messages {
		export.Messages[i] = ExportMessage{
			Sender:    string(msg.Sender),
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		}
		if opts.IncludeProducts {
			export.Messages[i].Products = msg.Products
		}
	}

	return json.MarshalIndent(export, "", "  ")
}

// SearchResult represents a match found while searching fetched logs
type SearchResult struct {
	MessageIndex int
	Snippet      string
}

// SearchMessages finds messages containing the query, case-insensitively,
// with a snippet of surrounding text for each match.
func SearchMessages(messages []models.Message, query string) []SearchResult {
	queryLower := strings.ToLower(query)
	var results []SearchResult

	for i, msg := range messages {
		if strings.Contains(strings.ToLower(msg.Text), queryLower) {
			results = append(results, SearchResult{
				MessageIndex: i,
				Snippet:      extractSnippet(msg.Text, query, 100),
			})
		}
	}

	return results
}

// extractSnippet extracts a snippet around the first occurrence of query.
// Offsets are counted in runes so multibyte text is never cut mid-character.
func extractSnippet(content, query string, maxLen int) string {
	contentLower := strings.ToLower(content)
	queryLower := strings.ToLower(query)

	runes := []rune(content)

	byteIdx := strings.Index(contentLower, queryLower)
	if byteIdx == -1 {
		if len(runes) > maxLen {
			return string(runes[:maxLen]) + "..."
		}
		return content
	}
	idx := utf8.RuneCountInString(contentLower[:byteIdx])
	queryLen := utf8.RuneCountInString(queryLower)

	half := maxLen / 2
	start := idx - half
	end := idx + queryLen + half

	if start < 0 {
		start = 0
		end = maxLen
	}
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
		if start < 0 {
			start = 0
		}
	}

	snippet := string(runes[start:end])

	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(runes) {
		snippet = snippet + "..."
	}

	return snippet
}
