package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
)

// StreamCallbacks receives the frames of one agent turn. All callbacks for a
// single Stream call are invoked sequentially from one goroutine, in wire
// order. Exactly one of OnComplete / OnError fires, and nothing fires after it.
type StreamCallbacks struct {
	// OnChunk is called once per chunk frame. The transport never accumulates
	// text; concatenation is the caller's job.
	OnChunk func(content string)
	// OnComplete is called on the complete frame and ends the stream.
	OnComplete func(finalText string, products []models.ProductCard, cart *models.CartSummary)
	// OnError is called on transport, protocol, or server error frames and
	// ends the stream. Chunks already delivered are not retracted.
	OnError func(err error)
}

// streamRequest is the body of the streaming POST
type streamRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// maxFrameSize bounds a single NDJSON line. A complete frame carries the full
// reply text plus product cards, so this is generous.
const maxFrameSize = 1 << 20

// Stream opens the agent streaming endpoint and feeds frames to cb. It
// returns immediately; the read loop runs on its own goroutine. Canceling ctx
// closes the connection and discards the stream without invoking callbacks
// (the caller is abandoning it; see the controller's staleness guard).
func (c *StoreClient) Stream(ctx context.Context, userID, message, sessionID string, cb StreamCallbacks) {
	go c.runStream(ctx, userID, message, sessionID, cb)
}

func (c *StoreClient) runStream(ctx context.Context, userID, message, sessionID string, cb StreamCallbacks) {
	endpoint := c.endpoint(models.PathChatStream)

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
	}

	if c.IsClosed() {
		fail(apierrors.NewTransportError("stream", endpoint, errors.New("client is closed")))
		return
	}

	body, err := json.Marshal(streamRequest{
		UserID:    userID,
		Message:   message,
		SessionID: sessionID,
	})
	if err != nil {
		fail(apierrors.NewTransportError("stream", endpoint, err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		fail(apierrors.NewTransportError("stream", endpoint, err))
		return
	}
	c.setCommonHeaders(req.Header.Set)
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		fail(apierrors.NewTransportError("stream", endpoint, err))
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		fail(apierrors.NewStatusError("stream", endpoint, resp.StatusCode))
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		frame, perr := models.ParseFrame(line)
		if perr != nil {
			// Strict framing: a malformed frame aborts the stream rather
			// than being skipped, so a desynced connection cannot leak
			// half-parsed text into the conversation.
			c.logger.Warn().Err(perr).Msg("malformed stream frame")
			fail(apierrors.NewProtocolError(perr.Error(), string(line)))
			return
		}

		if ctx.Err() != nil {
			return
		}

		switch frame.Type {
		case models.FrameChunk:
			if cb.OnChunk != nil {
				cb.OnChunk(frame.Content)
			}
		case models.FrameComplete:
			if cb.OnComplete != nil {
				cb.OnComplete(frame.FinalText, frame.Products, frame.CartSummary)
			}
			// Terminal: later bytes, if any, are never read
			return
		case models.FrameError:
			fail(apierrors.NewApplicationError(frame.Message))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		fail(apierrors.NewTransportError("stream", endpoint, err))
		return
	}

	// EOF without a terminal frame
	fail(apierrors.NewTransportError("stream", endpoint, errors.New("stream ended before completion")))
}
