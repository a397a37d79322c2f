package api

import (
	"encoding/json"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/diogo/shopchat/internal/models"
)

// GetHistory fetches the ordered message log for a session. The backend
// stores records as {role, content, timestamp, products}; they are mapped to
// client Messages here. Records carry no ids, so fresh ones are minted; ids
// only need to be stable within the in-memory log.
func (c *StoreClient) GetHistory(sessionID string) ([]models.Message, error) {
	endpoint := c.endpoint(models.PathHistoryByID, sessionID)

	data, err := c.doREST("get history", http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := checkSuccess(data); err != nil {
		return nil, err
	}

	var messages []models.Message
	gjson.GetBytes(data, "messages").ForEach(func(_, value gjson.Result) bool {
		sender := models.SenderAgent
		if value.Get("role").String() == "user" {
			sender = models.SenderUser
		}

		msg := models.Message{
			ID:        uuid.New().String(),
			Text:      value.Get("content").String(),
			Sender:    sender,
			Timestamp: parseTimestamp(value.Get("timestamp").String()),
		}

		if products := value.Get("products"); products.IsArray() {
			// Product records use the same field names on both sides
			_ = json.Unmarshal([]byte(products.Raw), &msg.Products)
		}

		messages = append(messages, msg)
		return true
	})

	return messages, nil
}

// ClearHistory deletes the persisted log for a session. Idempotent: clearing
// an already-empty log succeeds.
func (c *StoreClient) ClearHistory(sessionID string) error {
	endpoint := c.endpoint(models.PathHistoryByID, sessionID)

	data, err := c.doREST("clear history", http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return checkSuccess(data)
}
