package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/diogo/shopchat/internal/api"
	"github.com/diogo/shopchat/internal/cart"
	apierrors "github.com/diogo/shopchat/internal/errors"
	"github.com/diogo/shopchat/internal/models"
)

func newTestController(client api.StoreClientInterface) (*Controller, *cart.Store) {
	store := cart.NewStore(zerolog.Nop())
	return NewController(client, store), store
}

// scriptedClient captures the stream callbacks so tests can drive frame
// delivery by hand, interleaved with controller calls.
type scriptedClient struct {
	*api.MockStoreClient

	mu sync.Mutex
	cb api.StreamCallbacks
}

func newScriptedClient() *scriptedClient {
	return &scriptedClient{MockStoreClient: &api.MockStoreClient{}}
}

func (s *scriptedClient) Stream(ctx context.Context, userID, message, sessionID string, cb api.StreamCallbacks) {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
}

func (s *scriptedClient) callbacks() api.StreamCallbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

func TestSendMessageStreamsIntoPlaceholder(t *testing.T) {
	client := &api.MockStoreClient{
		StreamChunks: []string{"Here are ", "two red shoes"},
		CompleteText: "server-side final text",
		CompleteCards: []models.ProductCard{
			{ID: "p1", Name: "Red Runner", Price: 2999},
		},
	}
	c, _ := newTestController(client)

	if err := c.SendMessage("show me red shoes"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages := c.Messages()
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want user + agent", len(messages))
	}
	if messages[0].Sender != models.SenderUser || messages[0].Text != "show me red shoes" {
		t.Errorf("user message = %+v", messages[0])
	}

	agent := messages[1]
	if agent.Sender != models.SenderAgent {
		t.Errorf("second message sender = %q", agent.Sender)
	}
	// Chunk concatenation is the displayed text; final_text is ignored when
	// chunks arrived.
	if agent.Text != "Here are two red shoes" {
		t.Errorf("agent text = %q", agent.Text)
	}
	if len(agent.Products) != 1 || agent.Products[0].Name != "Red Runner" {
		t.Errorf("products = %+v", agent.Products)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle after completion", c.State())
	}
}

func TestSendMessageFinalTextWhenNoChunks(t *testing.T) {
	client := &api.MockStoreClient{CompleteText: "the whole reply at once"}
	c, _ := newTestController(client)

	if err := c.SendMessage("hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages := c.Messages()
	if got := messages[1].Text; got != "the whole reply at once" {
		t.Errorf("agent text = %q, want final_text fallback", got)
	}
}

func TestSendMessageTrimsAndRejectsEmpty(t *testing.T) {
	client := &api.MockStoreClient{}
	c, _ := newTestController(client)

	for _, input := range []string{"", "   ", "\n\t"} {
		err := c.SendMessage(input)
		if !errors.Is(err, apierrors.ErrEmptyMessage) {
			t.Errorf("SendMessage(%q) error = %v, want ErrEmptyMessage", input, err)
		}
	}
	if client.StreamCalls != 0 {
		t.Errorf("stream calls = %d, precondition failures must not hit the network", client.StreamCalls)
	}
	if len(c.Messages()) != 0 {
		t.Error("rejected sends must not append messages")
	}
}

func TestSendMessageRequiresUser(t *testing.T) {
	client := &api.MockStoreClient{NoUser: true}
	c, _ := newTestController(client)

	err := c.SendMessage("hello")
	if !errors.Is(err, apierrors.ErrNotAuthenticated) {
		t.Errorf("error = %v, want ErrNotAuthenticated", err)
	}
}

func TestSendMessageRejectedWhileBusy(t *testing.T) {
	client := newScriptedClient()
	c, _ := newTestController(client)

	if err := c.SendMessage("first"); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	err := c.SendMessage("second")
	if !errors.Is(err, apierrors.ErrStreamBusy) {
		t.Errorf("second send error = %v, want ErrStreamBusy", err)
	}

	// Finish the first stream; the log must contain only the first exchange
	client.callbacks().OnComplete("done", nil, nil)

	messages := c.Messages()
	if len(messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(messages))
	}
	if messages[0].Text != "first" {
		t.Errorf("user message = %q", messages[0].Text)
	}
}

func TestSendMessageErrorShowsFallback(t *testing.T) {
	client := &api.MockStoreClient{
		StreamChunks: []string{"partial "},
		StreamErr:    apierrors.NewStatusError("stream", "http://x", 502),
	}
	c, _ := newTestController(client)

	if err := c.SendMessage("hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	messages := c.Messages()
	if got := messages[1].Text; got != models.FallbackErrorText {
		t.Errorf("agent text = %q, want fallback error text", got)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle so the shopper can retry", c.State())
	}
}

func TestCompleteAppliesCartSnapshot(t *testing.T) {
	client := &api.MockStoreClient{
		CompleteText: "Added to your cart.",
		CompleteCart: &models.CartSummary{
			Items:    []models.CartItem{{ProductID: "p1", Name: "Red Runner", Price: 2999, Quantity: 1}},
			Subtotal: 2999,
			Total:    2999,
		},
	}
	c, store := newTestController(client)

	if err := c.SendMessage("add the red runner"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	items := store.Items()
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Errorf("cart items = %+v", items)
	}
	if !store.IsOpen() {
		t.Error("cart panel should open on reconcile")
	}
}

func TestCompleteWithoutCartLeavesCartAlone(t *testing.T) {
	client := &api.MockStoreClient{CompleteText: "Just chatting."}
	c, store := newTestController(client)

	store.ApplySnapshot(models.CartSummary{
		Items: []models.CartItem{{ProductID: "keep", Quantity: 1}},
		Total: 50,
	})
	store.Close()

	if err := c.SendMessage("what's trending?"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(store.Items()) != 1 {
		t.Error("a turn without cart_summary must not touch the cart")
	}
	if store.IsOpen() {
		t.Error("panel must stay closed when no snapshot arrived")
	}
}

func TestLoadHistoryReplacesLog(t *testing.T) {
	client := &api.MockStoreClient{
		HistoryVal: []models.Message{
			{ID: "h1", Text: "old question", Sender: models.SenderUser},
			{ID: "h2", Text: "old answer", Sender: models.SenderAgent},
		},
	}
	c, _ := newTestController(client)

	c.LoadHistory("session-1")

	if got := c.SessionID(); got != "session-1" {
		t.Errorf("session id = %q", got)
	}
	messages := c.Messages()
	if len(messages) != 2 || messages[0].Text != "old question" {
		t.Errorf("messages = %+v", messages)
	}
	if len(client.HistoryCalls) != 1 || client.HistoryCalls[0] != "session-1" {
		t.Errorf("history calls = %v", client.HistoryCalls)
	}
}

func TestLoadHistoryFailureStartsEmpty(t *testing.T) {
	client := &api.MockStoreClient{
		HistoryErr: apierrors.NewStatusError("get history", "http://x", 500),
	}
	c, _ := newTestController(client)

	c.LoadHistory("session-1")

	if got := len(c.Messages()); got != 0 {
		t.Errorf("messages = %d, want empty log after fetch failure", got)
	}
	if got := c.SessionID(); got != "session-1" {
		t.Errorf("session id = %q, switch must still happen", got)
	}
}

func TestSessionSwitchDiscardsStaleStream(t *testing.T) {
	client := newScriptedClient()
	client.HistoryVal = []models.Message{
		{ID: "h1", Text: "from session two", Sender: models.SenderAgent},
	}
	c, store := newTestController(client)

	if err := c.SendMessage("first question"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	cb := client.callbacks()
	cb.OnChunk("early chunk")

	// Switch sessions while the stream is open
	c.LoadHistory("session-2")

	// Late frames from the abandoned stream must be dropped
	cb.OnChunk(" late chunk")
	cb.OnComplete("late final", nil, &models.CartSummary{Total: 999})

	messages := c.Messages()
	if len(messages) != 1 || messages[0].Text != "from session two" {
		t.Errorf("messages = %+v, stale stream leaked into the new session", messages)
	}
	if store.Summary().Total != 0 {
		t.Error("stale cart snapshot must not be applied")
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle", c.State())
	}
}

// delayedHistoryClient holds one session's history round-trip open until
// released, so tests can overlap two loads.
type delayedHistoryClient struct {
	*api.MockStoreClient

	holdSession string
	inFlight    chan struct{}
	release     chan struct{}
	logs        map[string][]models.Message
}

func (d *delayedHistoryClient) GetHistory(sessionID string) ([]models.Message, error) {
	if sessionID == d.holdSession {
		close(d.inFlight)
		<-d.release
	}
	return d.logs[sessionID], nil
}

func TestRapidSwitchDiscardsStaleHistoryLoad(t *testing.T) {
	client := &delayedHistoryClient{
		MockStoreClient: &api.MockStoreClient{},
		holdSession:     "session-a",
		inFlight:        make(chan struct{}),
		release:         make(chan struct{}),
		logs: map[string][]models.Message{
			"session-a": {{ID: "a1", Text: "from session a", Sender: models.SenderAgent}},
			"session-b": {{ID: "b1", Text: "from session b", Sender: models.SenderAgent}},
		},
	}
	c, _ := newTestController(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.LoadHistory("session-a")
	}()

	select {
	case <-client.inFlight:
	case <-time.After(time.Second):
		t.Fatal("first load never reached the backend")
	}

	// Switch to B while A's round-trip is still open
	c.LoadHistory("session-b")

	// A's response arrives last but belongs to a session that is no longer
	// selected; it must be dropped.
	close(client.release)
	wg.Wait()

	if got := c.SessionID(); got != "session-b" {
		t.Errorf("session id = %q, want session-b", got)
	}
	messages := c.Messages()
	if len(messages) != 1 || messages[0].Text != "from session b" {
		t.Errorf("messages = %+v, stale history response replaced the newer session's log", messages)
	}
}

func TestClearHistoryIsIdempotent(t *testing.T) {
	client := &api.MockStoreClient{
		HistoryVal: []models.Message{{ID: "h1", Text: "hi", Sender: models.SenderUser}},
	}
	c, _ := newTestController(client)

	c.LoadHistory("session-1")
	c.ClearHistory()
	c.ClearHistory()

	if got := len(c.Messages()); got != 0 {
		t.Errorf("messages = %d, want 0", got)
	}
	if got := len(client.ClearHistoryCalls); got != 2 {
		t.Errorf("clear calls = %d, want 2 (second clear still issued)", got)
	}
}

func TestClearHistoryDeleteFailureStillClearsMemory(t *testing.T) {
	client := &api.MockStoreClient{
		HistoryVal:      []models.Message{{ID: "h1", Text: "hi", Sender: models.SenderUser}},
		ClearHistoryErr: apierrors.NewStatusError("clear history", "http://x", 500),
	}
	c, _ := newTestController(client)

	c.LoadHistory("session-1")
	c.ClearHistory()

	if got := len(c.Messages()); got != 0 {
		t.Errorf("messages = %d, in-memory log must clear even when the delete fails", got)
	}
}

func TestClearHistoryWithoutSessionSkipsNetwork(t *testing.T) {
	client := &api.MockStoreClient{}
	c, _ := newTestController(client)

	c.ClearHistory()

	if got := len(client.ClearHistoryCalls); got != 0 {
		t.Errorf("clear calls = %d, want 0 with no session selected", got)
	}
}

func TestCancelStreamKeepsPartialText(t *testing.T) {
	client := newScriptedClient()
	c, _ := newTestController(client)

	if err := c.SendMessage("question"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	cb := client.callbacks()
	cb.OnChunk("partial answer")

	c.CancelStream()

	if c.State() != StateIdle {
		t.Errorf("state = %v, want idle after cancel", c.State())
	}
	if got := c.StreamingID(); got != "" {
		t.Errorf("streaming id = %q, want empty", got)
	}

	// Frames from the canceled stream are stale now
	cb.OnChunk(" never shown")
	cb.OnComplete("never shown", nil, nil)

	messages := c.Messages()
	if got := messages[1].Text; got != "partial answer" {
		t.Errorf("agent text = %q, want the partial text frozen at cancel", got)
	}
}

func TestCancelStreamNoopWhenIdle(t *testing.T) {
	client := &api.MockStoreClient{}
	c, _ := newTestController(client)

	c.CancelStream() // must not panic or change anything

	if c.State() != StateIdle {
		t.Errorf("state = %v", c.State())
	}
}

func TestResetEmptiesEverything(t *testing.T) {
	client := &api.MockStoreClient{
		HistoryVal: []models.Message{{ID: "h1", Text: "hi", Sender: models.SenderUser}},
	}
	c, _ := newTestController(client)

	c.LoadHistory("session-1")
	c.Reset()

	if c.SessionID() != "" {
		t.Errorf("session id = %q, want empty", c.SessionID())
	}
	if len(c.Messages()) != 0 {
		t.Error("messages should be empty after reset")
	}
	if len(client.ClearHistoryCalls) != 0 {
		t.Error("reset must not touch persisted state")
	}
}

func TestStateTransitions(t *testing.T) {
	client := newScriptedClient()
	c, _ := newTestController(client)

	if c.State() != StateIdle {
		t.Fatalf("initial state = %v", c.State())
	}

	if err := c.SendMessage("hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if c.State() != StateSending {
		t.Errorf("state after send = %v, want sending", c.State())
	}
	if !c.IsLoading() {
		t.Error("IsLoading should be true while sending")
	}
	if c.IsStreaming() {
		t.Error("IsStreaming should be false before the first chunk")
	}

	cb := client.callbacks()
	cb.OnChunk("a")
	if c.State() != StateStreaming {
		t.Errorf("state after chunk = %v, want streaming", c.State())
	}
	if !c.IsStreaming() {
		t.Error("IsStreaming should be true after a chunk")
	}

	cb.OnComplete("a", nil, nil)
	if c.State() != StateIdle {
		t.Errorf("state after complete = %v, want idle", c.State())
	}
}

func TestOnChangeFires(t *testing.T) {
	client := &api.MockStoreClient{StreamChunks: []string{"a", "b"}, CompleteText: "ab"}

	var mu sync.Mutex
	var calls int
	store := cart.NewStore(zerolog.Nop())
	c := NewController(client, store, WithOnChange(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}))

	if err := c.SendMessage("hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// Initial append + two chunks + completion
	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 4 {
		t.Errorf("onChange calls = %d, want 4", got)
	}
}

func TestAsyncStreamDelivery(t *testing.T) {
	started := make(chan struct{})
	client := &api.MockStoreClient{
		StreamChunks:  []string{"hello"},
		CompleteText:  "hello",
		StreamAsync:   true,
		StreamStarted: started,
	}

	done := make(chan struct{})
	store := cart.NewStore(zerolog.Nop())
	var c *Controller
	c = NewController(client, store, WithOnChange(func() {
		if c.State() == StateIdle && len(c.Messages()) == 2 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}))

	if err := c.SendMessage("hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("stream never started")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream never completed")
	}

	if got := c.Messages()[1].Text; got != "hello" {
		t.Errorf("agent text = %q", got)
	}
}
