package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tokencast/models"

	"github.com/avast/retry-go/v4"
)

// Client talks to the external room/media service. It covers the two surfaces
// this platform consumes: the per-room participant roster and recording-style
// egress jobs. Media routing itself never touches this process.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a room service client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

type listRoomsResponse struct {
	Rooms []models.Room `json:"rooms"`
}

// ListRooms returns the authoritative roster of active rooms with participant
// counts. Roster reads are not retried; the periodic sync pass will catch up
// on the next tick.
func (c *Client) ListRooms(ctx context.Context) ([]models.Room, error) {
	var response listRoomsResponse
	if err := c.do(ctx, http.MethodGet, "/rooms", nil, &response); err != nil {
		return nil, err
	}
	return response.Rooms, nil
}

// StartEgress starts a recording job for a room. Start requests are retried a
// few times on transport failure; the job is idempotent on the service side
// (one active egress per room).
func (c *Client) StartEgress(ctx context.Context, roomName string) (*models.EgressJob, error) {
	payload := map[string]string{"roomName": roomName}

	var job models.EgressJob
	err := retry.Do(
		func() error {
			return c.do(ctx, http.MethodPost, "/egress/start", payload, &job)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// StopEgress stops a recording job.
func (c *Client) StopEgress(ctx context.Context, egressID string) error {
	payload := map[string]string{"egressId": egressID}
	return retry.Do(
		func() error {
			return c.do(ctx, http.MethodPost, "/egress/stop", payload, nil)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func (c *Client) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: room service request: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: room service %s %s: %s - %s",
			models.ErrUpstream, method, path, resp.Status, strings.TrimSpace(string(respBody)))
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode room service response: %v", models.ErrUpstream, err)
	}
	return nil
}
