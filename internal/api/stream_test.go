package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/diogo/shopchat/internal/config"
	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
)

func newTestClient(t *testing.T, baseURL string) *StoreClient {
	t.Helper()
	client, err := NewClient(
		&config.Credentials{UserID: "shopper-1", APIToken: "tok-test"},
		WithBaseURL(baseURL),
		WithTimeout(10*time.Second),
	)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// streamResult collects everything one Stream call produced
type streamResult struct {
	chunks    []string
	finalText string
	products  []models.ProductCard
	cart      *models.CartSummary
	err       error
}

// runStreamSync issues a Stream call and waits for its terminal callback
func runStreamSync(t *testing.T, client *StoreClient, ctx context.Context, message, sessionID string) streamResult {
	t.Helper()

	var result streamResult
	done := make(chan struct{})

	client.Stream(ctx, client.UserID(), message, sessionID, StreamCallbacks{
		OnChunk: func(content string) {
			result.chunks = append(result.chunks, content)
		},
		OnComplete: func(finalText string, products []models.ProductCard, cart *models.CartSummary) {
			result.finalText = finalText
			result.products = products
			result.cart = cart
			close(done)
		},
		OnError: func(err error) {
			result.err = err
			close(done)
		},
	})

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not terminate")
	}
	return result
}

func TestStreamDeliversChunksAndCompletion(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/stream" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok-test" {
			t.Errorf("auth header = %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/x-ndjson")
		io.WriteString(w, `{"type":"chunk","content":"Here are "}`+"\n")
		io.WriteString(w, "\n") // blank lines are tolerated
		io.WriteString(w, `{"type":"chunk","content":"red shoes"}`+"\n")
		io.WriteString(w, `{"type":"complete","final_text":"Here are red shoes","products":[{"id":"p1","name":"Red Runner","price":2999}],"cart_summary":{"items":[],"subtotal":0,"shipping":0,"total":0}}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "show me red shoes", "sess-1")

	if result.err != nil {
		t.Fatalf("unexpected error: %v", result.err)
	}
	if len(result.chunks) != 2 || result.chunks[0] != "Here are " {
		t.Errorf("chunks = %v", result.chunks)
	}
	if result.finalText != "Here are red shoes" {
		t.Errorf("final text = %q", result.finalText)
	}
	if len(result.products) != 1 || result.products[0].ID != "p1" {
		t.Errorf("products = %+v", result.products)
	}
	if result.cart == nil {
		t.Error("cart summary missing")
	}

	if gotBody["user_id"] != "shopper-1" {
		t.Errorf("request user_id = %q", gotBody["user_id"])
	}
	if gotBody["message"] != "show me red shoes" {
		t.Errorf("request message = %q", gotBody["message"])
	}
	if gotBody["session_id"] != "sess-1" {
		t.Errorf("request session_id = %q", gotBody["session_id"])
	}
}

func TestStreamOmitsEmptySessionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var raw map[string]interface{}
		_ = json.Unmarshal(body, &raw)
		if _, present := raw["session_id"]; present {
			t.Error("session_id should be omitted for a one-off turn")
		}
		io.WriteString(w, `{"type":"complete","final_text":"ok"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")
	if result.err != nil {
		t.Fatalf("unexpected error: %v", result.err)
	}
}

func TestStreamErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"chunk","content":"partial"}`+"\n")
		io.WriteString(w, `{"type":"error","message":"agent crashed"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if !apierrors.IsApplicationError(result.err) {
		t.Fatalf("error = %v, want ApplicationError", result.err)
	}
	// Chunks delivered before the error are not retracted
	if len(result.chunks) != 1 {
		t.Errorf("chunks = %v", result.chunks)
	}
}

func TestStreamMalformedFrameAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"chunk","content":"good"}`+"\n")
		io.WriteString(w, `this is not json`+"\n")
		io.WriteString(w, `{"type":"complete","final_text":"never seen"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if !apierrors.IsProtocolError(result.err) {
		t.Fatalf("error = %v, want ProtocolError", result.err)
	}
	if result.finalText != "" {
		t.Error("nothing after the malformed frame may be delivered")
	}
}

func TestStreamUnknownFrameTypeAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"heartbeat"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if !apierrors.IsProtocolError(result.err) {
		t.Fatalf("error = %v, want ProtocolError", result.err)
	}
}

func TestStreamNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if !apierrors.IsTransportError(result.err) {
		t.Fatalf("error = %v, want TransportError", result.err)
	}
	if got := apierrors.GetHTTPStatus(result.err); got != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", got)
	}
}

func TestStreamEOFBeforeTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"chunk","content":"and then the connection "}`+"\n")
		// No terminal frame
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if !apierrors.IsTransportError(result.err) {
		t.Fatalf("error = %v, want TransportError for truncated stream", result.err)
	}
}

func TestStreamStopsReadingAfterComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"type":"complete","final_text":"done"}`+"\n")
		io.WriteString(w, `{"type":"chunk","content":"trailing garbage"}`+"\n")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result := runStreamSync(t, client, context.Background(), "hi", "")

	if result.err != nil {
		t.Fatalf("unexpected error: %v", result.err)
	}
	if len(result.chunks) != 0 {
		t.Errorf("chunks = %v, nothing after complete may be delivered", result.chunks)
	}
}

func TestStreamCanceledContextSuppressesCallbacks(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		io.WriteString(w, `{"type":"chunk","content":"a"}`+"\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	fired := make(chan error, 1)
	client.Stream(ctx, client.UserID(), "hi", "", StreamCallbacks{
		OnError: func(err error) {
			fired <- err
		},
		OnComplete: func(string, []models.ProductCard, *models.CartSummary) {
			fired <- errors.New("unexpected completion")
		},
	})

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never arrived")
	}
	cancel()

	select {
	case err := <-fired:
		t.Fatalf("callback fired after cancellation: %v", err)
	case <-time.After(500 * time.Millisecond):
		// Silence is the contract
	}
}

func TestStreamOnClosedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("closed client must not reach the network")
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	client.Close()

	result := runStreamSync(t, client, context.Background(), "hi", "")
	if !apierrors.IsTransportError(result.err) {
		t.Errorf("error = %v, want TransportError", result.err)
	}
}
