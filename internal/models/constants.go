package models

// API paths, relative to the configured base URL.
const (
	PathChatStream   = "/api/v1/chat/stream"
	PathSessions     = "/api/v1/chat/sessions"
	PathSessionsByID = "/api/v1/chat/sessions/%s" // userID on GET (list), sessionID on DELETE
	PathHistoryByID  = "/api/v1/chat/history/%s"  // sessionID
)

// DefaultBaseURL points at a local development backend. Override via config
// or SHOPCHAT_BASE_URL.
const DefaultBaseURL = "http://localhost:8000"

// FallbackErrorText is shown in place of an agent reply when a send fails.
// Kept short and human readable; the real cause goes to the log.
const FallbackErrorText = "Sorry, I encountered an error. Please try again."

// DefaultHeaders returns the headers sent on every request to the storefront
// backend.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   "shopchat-cli/0.1",
	}
}
