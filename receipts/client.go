package receipts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"readtrack/models"
)

const defaultTimeout = 10 * time.Second

// Client issues read-receipt calls against the messaging backend. Mark
// operations never surface errors to the caller: a failed mark is logged and
// dropped, and the user retries by looking at the message again. Query
// operations degrade to nil / empty results on failure.
type Client struct {
	baseURL        string
	conversationID int64
	httpClient     *http.Client

	// Token, when set, is sent as a bearer token on every request.
	Token string
}

// NewClient creates a client scoped to one conversation. baseURL has no
// trailing slash, e.g. "http://localhost:8080".
func NewClient(baseURL string, conversationID int64) *Client {
	return &Client{
		baseURL:        baseURL,
		conversationID: conversationID,
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}
}

// MarkMessageAsRead marks a single message read. Failures are logged, never
// returned.
func (c *Client) MarkMessageAsRead(ctx context.Context, messageID int64) {
	url := fmt.Sprintf("%s/api/tiktok/messages/%d/read", c.baseURL, messageID)
	if err := c.post(ctx, url); err != nil {
		log.Printf("receipts: failed to mark message %d as read: %v", messageID, err)
	}
}

// MarkConversationAsRead marks every message in the conversation read. No-op
// when the client has no conversation id. Failures are logged, never
// returned.
func (c *Client) MarkConversationAsRead(ctx context.Context) {
	if c.conversationID == 0 {
		return
	}
	url := fmt.Sprintf("%s/api/tiktok/conversations/%d/read", c.baseURL, c.conversationID)
	if err := c.post(ctx, url); err != nil {
		log.Printf("receipts: failed to mark conversation %d as read: %v", c.conversationID, err)
	}
}

// GetMessageStatus fetches the current delivery status of one message from
// the backend (as opposed to the push-driven cache). Returns nil on any
// failure.
func (c *Client) GetMessageStatus(ctx context.Context, messageID int64) *models.DeliveryStatus {
	url := fmt.Sprintf("%s/api/tiktok/messages/%d/status", c.baseURL, messageID)

	var body struct {
		Status *models.DeliveryStatus `json:"status"`
	}
	if err := c.getJSON(ctx, url, &body); err != nil {
		log.Printf("receipts: failed to get status for message %d: %v", messageID, err)
		return nil
	}
	return body.Status
}

// GetReadReceipts fetches the per-user read receipts for one message.
// Returns an empty slice, never nil, on any failure.
func (c *Client) GetReadReceipts(ctx context.Context, messageID int64) []models.ReadReceipt {
	url := fmt.Sprintf("%s/api/tiktok/messages/%d/receipts", c.baseURL, messageID)

	var body struct {
		Receipts []models.ReadReceipt `json:"receipts"`
	}
	if err := c.getJSON(ctx, url, &body); err != nil {
		log.Printf("receipts: failed to get receipts for message %d: %v", messageID, err)
		return []models.ReadReceipt{}
	}
	if body.Receipts == nil {
		return []models.ReadReceipt{}
	}
	return body.Receipts
}

func (c *Client) post(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response body: %w", err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return c.httpClient.Do(req)
}
