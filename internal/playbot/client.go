package playbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	service "github.com/okian/inkplay/internal/app"
	"github.com/okian/inkplay/internal/domain/precision"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks to the inkplay JSON API.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Catalog lists the active games.
func (c *Client) Catalog(ctx context.Context) ([]service.GameInfo, error) {
	var out struct {
		Games []service.GameInfo `json:"games"`
	}
	if err := c.do(ctx, http.MethodGet, "/games", nil, &out); err != nil {
		return nil, err
	}
	return out.Games, nil
}

// Start opens a session of game key for player.
func (c *Client) Start(ctx context.Context, key, player string) (service.SessionView, error) {
	var v service.SessionView
	err := c.do(ctx, http.MethodPost, "/games/"+key+"/sessions", map[string]string{"player_id": player}, &v)
	return v, err
}

// Session reads a session.
func (c *Client) Session(ctx context.Context, id string) (service.SessionView, error) {
	var v service.SessionView
	err := c.do(ctx, http.MethodGet, "/sessions/"+id, nil, &v)
	return v, err
}

// End closes a session.
func (c *Client) End(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

// Reveal turns a memory card.
func (c *Client) Reveal(ctx context.Context, id string, index int) (service.SessionView, error) {
	var v service.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/reveal", map[string]int{"index": index}, &v)
	return v, err
}

// Mix squeezes an ink tube.
func (c *Client) Mix(ctx context.Context, id, tube string) (service.SessionView, error) {
	var v service.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/mix", map[string]string{"tube": tube}, &v)
	return v, err
}

// Stroke submits logical canvas points.
func (c *Client) Stroke(ctx context.Context, id string, points []precision.Point) (service.SessionView, error) {
	var v service.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/strokes", service.StrokeInput{Points: points}, &v)
	return v, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
