package api

import (
	"encoding/json"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
)

// ListSessions returns the shopper's conversations in server order
// (reverse-chronological by creation).
func (c *StoreClient) ListSessions(userID string) ([]models.Session, error) {
	endpoint := c.endpoint(models.PathSessionsByID, userID)

	data, err := c.doREST("list sessions", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := checkSuccess(data); err != nil {
		return nil, err
	}

	var sessions []models.Session
	gjson.GetBytes(data, "sessions").ForEach(func(_, value gjson.Result) bool {
		sessions = append(sessions, models.Session{
			SessionID:    value.Get("session_id").String(),
			CreatedAt:    parseTimestamp(value.Get("created_at").String()),
			MessageCount: int(value.Get("message_count").Int()),
			Title:        value.Get("title").String(),
		})
		return true
	})

	return sessions, nil
}

// CreateSession allocates a new, empty session for the shopper and returns
// its id. The caller is responsible for making it current and loading its
// (empty) history.
func (c *StoreClient) CreateSession(userID string) (string, error) {
	endpoint := c.endpoint(models.PathSessions)

	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return "", apierrors.NewTransportError("create session", endpoint, err)
	}

	data, err := c.doREST("create session", http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}
	if err := checkSuccess(data); err != nil {
		return "", err
	}

	sessionID := gjson.GetBytes(data, "session_id").String()
	if sessionID == "" {
		return "", apierrors.NewProtocolError("create session response has no session_id", string(data))
	}

	return sessionID, nil
}

// DeleteSession removes a session and its persisted log. Deleting the
// currently open session is the caller's problem: it must hand the
// controller a fresh session afterwards.
func (c *StoreClient) DeleteSession(sessionID string) error {
	endpoint := c.endpoint(models.PathSessionsByID, sessionID)

	data, err := c.doREST("delete session", http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return checkSuccess(data)
}

// parseTimestamp parses server timestamps, tolerating both RFC3339 and the
// backend's sub-second variant. Zero time on failure.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
