package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/constants"
	"tfm-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
)

// Client talks to the tracker server's JSON surface.
type Client struct {
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

type SyncResponse struct {
	NeedsUpdate bool             `json:"needsUpdate"`
	Data        *domain.Document `json:"data"`
	LastUpdated string           `json:"lastUpdated"`
}

type SaveResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	LastUpdated string `json:"lastUpdated"`
	Stats       struct {
		Players int `json:"players"`
		Games   int `json:"games"`
	} `json:"stats"`
}

// StatusError is returned for any non-200 reply.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.Code)
	}
	return fmt.Sprintf("API error: %d: %s", e.Code, e.Message)
}

func NewClient(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		client: &fasthttp.Client{
			MaxConnsPerHost:     16,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (c *Client) FetchData(ctx context.Context) (*domain.Document, error) {
	return doRequest[domain.Document](ctx, c, fasthttp.MethodGet, c.baseURL+"/api/data", nil)
}

func (c *Client) CheckSync(ctx context.Context, lastUpdated string) (*SyncResponse, error) {
	u := c.baseURL + "/api/sync?timestamp=" + url.QueryEscape(lastUpdated)
	return doRequest[SyncResponse](ctx, c, fasthttp.MethodGet, u, nil)
}

// PushData overwrites the server document and returns the new lastUpdated.
func (c *Client) PushData(ctx context.Context, doc domain.Document) (string, error) {
	doc.LastUpdated = ""
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	resp, err := doRequest[SaveResponse](ctx, c, fasthttp.MethodPost, c.baseURL+"/api/data", body)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &StatusError{Code: fasthttp.StatusOK, Message: resp.Message}
	}
	c.logger.Debug().
		Str("last_updated", resp.LastUpdated).
		Int("players", resp.Stats.Players).
		Int("games", resp.Stats.Games).
		Msg("document pushed")
	return resp.LastUpdated, nil
}

func doRequest[T any](ctx context.Context, client *Client, method, uri string, body []byte) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StatusError{
			Code:    resp.StatusCode(),
			Message: gjson.GetBytes(resp.Body(), "message").String(),
		}
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return &result, nil
}
