package models

import "time"

// Session is a persisted, named conversation thread. Its message log is a
// separate resource fetched by session id.
type Session struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	Title        string    `json:"title"`
}
