package api

import (
	"bytes"
	"errors"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/shopchat/internal/errors"
)

// doREST performs one JSON round-trip against the backend and returns the
// response body. Non-2xx statuses and connection failures come back as
// TransportError; the body is read whole because REST responses are small.
func (c *StoreClient) doREST(op, method, endpoint string, body []byte) ([]byte, error) {
	if c.IsClosed() {
		return nil, apierrors.NewTransportError(op, endpoint, errors.New("client is closed"))
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return nil, apierrors.NewTransportError(op, endpoint, err)
	}
	c.setCommonHeaders(req.Header.Set)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.NewTransportError(op, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, apierrors.NewTransportError(op, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Str("op", op).Msg("backend rejected request")
		return nil, apierrors.NewStatusError(op, endpoint, resp.StatusCode)
	}

	return data, nil
}

// checkSuccess validates the {"success": true} envelope the backend wraps
// around every REST response.
func checkSuccess(data []byte) error {
	success := gjson.GetBytes(data, "success")
	if success.Exists() && !success.Bool() {
		detail := gjson.GetBytes(data, "detail").String()
		if detail == "" {
			detail = "backend reported failure"
		}
		return apierrors.NewApplicationError(detail)
	}
	return nil
}
