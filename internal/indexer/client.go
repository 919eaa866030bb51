package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/runesbridge/runes-bridge/internal/apperr"
	"github.com/runesbridge/runes-bridge/internal/metrics"
	"github.com/runesbridge/runes-bridge/internal/state"
	log "github.com/sirupsen/logrus"
)

const (
	PageSize = 60

	runeActivityPath = "/runes/v1/etchings/{rune_id}/activity/{address}"
	txActivityPath   = "/runes/v1/transactions/{tx_id}/activity"
)

// StatusError is a well-formed indexer answer with a non-success status
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("indexer returned %d for %s", e.Code, e.Path)
}

// Client talks to a Hiro-compatible runes API. Every request waits on the shared limiter.
type Client struct {
	http    *resty.Client
	limiter *state.RateLimiter
}

func NewClient(baseURL, apiKey string, timeout time.Duration, limiter *state.RateLimiter) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		httpClient.SetHeader("x-api-key", apiKey)
	}
	return &Client{
		http:    httpClient,
		limiter: limiter,
	}
}

// GetRuneActivity returns one page of activity of runeID at address
func (c *Client) GetRuneActivity(ctx context.Context, runeID, address string, offset int) (*ActivityPage, error) {
	req := c.http.R().
		SetPathParams(map[string]string{"rune_id": runeID, "address": address}).
		SetQueryParams(map[string]string{
			"offset": strconv.Itoa(offset),
			"limit":  strconv.Itoa(PageSize),
		})
	return c.getPage(ctx, req, "rune_activity", runeActivityPath)
}

// GetTransactionActivity returns the rune activity of a single transaction
func (c *Client) GetTransactionActivity(ctx context.Context, txID string) (*ActivityPage, error) {
	req := c.http.R().
		SetPathParam("tx_id", txID).
		SetQueryParam("limit", strconv.Itoa(PageSize))
	return c.getPage(ctx, req, "tx_activity", txActivityPath)
}

func (c *Client) getPage(ctx context.Context, req *resty.Request, endpoint, path string) (*ActivityPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperr.ExternalService(err, "indexer call not admitted")
	}

	start := time.Now()
	resp, err := req.SetContext(ctx).Get(path)
	metrics.IndexerRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.IndexerRequests.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, apperr.ExternalService(err, "indexer request failed")
	}
	if !resp.IsSuccess() {
		metrics.IndexerRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()
		return nil, &StatusError{Code: resp.StatusCode(), Path: resp.Request.URL}
	}

	var page ActivityPage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		metrics.IndexerRequests.WithLabelValues(endpoint, "decode_error").Inc()
		return nil, apperr.ExternalService(err, "failed to decode indexer response")
	}
	metrics.IndexerRequests.WithLabelValues(endpoint, strconv.Itoa(http.StatusOK)).Inc()
	log.Debugf("Indexer %s returned %d of %d results at offset %d", endpoint, len(page.Results), page.Total, page.Offset)
	return &page, nil
}
