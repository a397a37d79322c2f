package api

import (
	"context"
	"sync"

	"github.com/diogo/shopchat/internal/models"
)

// MockStoreClient is a mock implementation of StoreClientInterface for
// testing. Stream delivers the scripted frames synchronously, in order, which
// keeps tests deterministic; set StreamAsync to exercise real interleaving.
type MockStoreClient struct {
	mu sync.Mutex

	// Mock return values
	UserIDVal        string
	NoUser           bool // force UserID() to return ""
	SessionsVal      []models.Session
	SessionsErr      error
	CreateSessionVal string
	CreateSessionErr error
	DeleteSessionErr error
	HistoryVal       []models.Message
	HistoryErr       error
	ClearHistoryErr  error

	// Stream script: chunks first, then either the error or the completion
	StreamChunks   []string
	StreamErr      error
	CompleteText   string
	CompleteCards  []models.ProductCard
	CompleteCart   *models.CartSummary
	StreamAsync    bool
	StreamStarted  chan struct{} // closed when a stream begins, if non-nil

	// Call recorders
	StreamCalls       int
	LastMessage       string
	LastSessionID     string
	HistoryCalls      []string
	ClearHistoryCalls []string
	DeletedSessions   []string
	CloseCalled       bool
}

var _ StoreClientInterface = (*MockStoreClient)(nil)

func (m *MockStoreClient) Stream(ctx context.Context, userID, message, sessionID string, cb StreamCallbacks) {
	m.mu.Lock()
	m.StreamCalls++
	m.LastMessage = message
	m.LastSessionID = sessionID
	m.mu.Unlock()

	run := func() {
		if m.StreamStarted != nil {
			close(m.StreamStarted)
		}
		for _, chunk := range m.StreamChunks {
			if ctx.Err() != nil {
				return
			}
			if cb.OnChunk != nil {
				cb.OnChunk(chunk)
			}
		}
		if ctx.Err() != nil {
			return
		}
		if m.StreamErr != nil {
			if cb.OnError != nil {
				cb.OnError(m.StreamErr)
			}
			return
		}
		if cb.OnComplete != nil {
			cb.OnComplete(m.CompleteText, m.CompleteCards, m.CompleteCart)
		}
	}

	if m.StreamAsync {
		go run()
	} else {
		run()
	}
}

func (m *MockStoreClient) ListSessions(userID string) ([]models.Session, error) {
	return m.SessionsVal, m.SessionsErr
}

func (m *MockStoreClient) CreateSession(userID string) (string, error) {
	return m.CreateSessionVal, m.CreateSessionErr
}

func (m *MockStoreClient) DeleteSession(sessionID string) error {
	m.mu.Lock()
	m.DeletedSessions = append(m.DeletedSessions, sessionID)
	m.mu.Unlock()
	return m.DeleteSessionErr
}

func (m *MockStoreClient) GetHistory(sessionID string) ([]models.Message, error) {
	m.mu.Lock()
	m.HistoryCalls = append(m.HistoryCalls, sessionID)
	m.mu.Unlock()
	return m.HistoryVal, m.HistoryErr
}

func (m *MockStoreClient) ClearHistory(sessionID string) error {
	m.mu.Lock()
	m.ClearHistoryCalls = append(m.ClearHistoryCalls, sessionID)
	m.mu.Unlock()
	return m.ClearHistoryErr
}

func (m *MockStoreClient) UserID() string {
	if m.NoUser {
		return ""
	}
	if m.UserIDVal != "" {
		return m.UserIDVal
	}
	return "mock-user"
}

func (m *MockStoreClient) Close() {
	m.CloseCalled = true
}
