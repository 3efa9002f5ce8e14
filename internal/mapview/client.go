package mapview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spothole/spothole-api/internal/dto"
	"github.com/spothole/spothole-api/internal/models"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to the pothole API the way the map front end does.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithToken returns a copy of the client that sends token as its session.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) ListPotholes(ctx context.Context) ([]dto.PotholeFlat, error) {
	var out []dto.PotholeFlat
	err := c.do(ctx, http.MethodGet, "/api/potholes", nil, &envelope{Data: &out})
	return out, err
}

func (c *Client) ListWithin(ctx context.Context, box models.BoundingBox) ([]dto.PotholeFlat, error) {
	q := url.Values{}
	q.Set("bbox", fmt.Sprintf("%g,%g,%g,%g", box.MinLng, box.MinLat, box.MaxLng, box.MaxLat))
	var out []dto.PotholeFlat
	err := c.do(ctx, http.MethodGet, "/api/potholes?"+q.Encode(), nil, &envelope{Data: &out})
	return out, err
}

func (c *Client) Comments(ctx context.Context, potholeID string, page, limit int) (*dto.CommentPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var items []dto.CommentItem
	env := &envelope{Data: &items}
	if err := c.do(ctx, http.MethodGet, "/api/potholes/"+url.PathEscape(potholeID)+"/comments?"+q.Encode(), nil, env); err != nil {
		return nil, err
	}
	return &dto.CommentPage{Items: items, HasMore: env.HasMore}, nil
}

func (c *Client) AddComment(ctx context.Context, potholeID, text string) (*dto.CommentItem, error) {
	var item dto.CommentItem
	err := c.do(ctx, http.MethodPost, "/api/potholes/"+url.PathEscape(potholeID)+"/comments",
		dto.CreateCommentRequest{Text: text}, &envelope{Data: &item})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ToggleUpvote(ctx context.Context, potholeID string) (*dto.UpvoteResult, error) {
	var res dto.UpvoteResult
	if err := c.do(ctx, http.MethodPost, "/api/potholes/"+url.PathEscape(potholeID)+"/upvote", nil, &envelope{Data: &res}); err != nil {
		return nil, err
	}
	return &res, nil
}

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	HasMore bool        `json:"hasMore"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out *envelope) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var fail dto.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&fail)
		if fail.Message == "" {
			fail.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: fail.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
