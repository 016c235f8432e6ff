package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akinalp/emocircle/pkg/metrics"
	"github.com/akinalp/emocircle/pkg/promparse"
)

// ServerStats is a digest of the server's /metrics.
type ServerStats struct {
	Subscribers     int
	Requests        int
	SessionsCreated int
	SessionsEnded   int
	Joins           int
	EmotionReports  int
	Messages        int
	Replies         int
	CacheHits       int
	CacheMisses     int
}

// Stats scrapes /metrics.
func (c *Client) Stats(ctx context.Context) (*ServerStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/metrics", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &APIError{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	}

	m, err := promparse.Parse(res.Body)
	if err != nil {
		return nil, err
	}

	event := func(name string) int {
		return m.IntWithLabel(metrics.MetricDomainEvents, "event", name)
	}

	return &ServerStats{
		Subscribers:     m.Int(metrics.MetricSubscribers),
		Requests:        m.SumInt(metrics.MetricHTTPRequests),
		SessionsCreated: event(metrics.EventSessionCreated),
		SessionsEnded:   event(metrics.EventSessionEnded),
		Joins:           event(metrics.EventJoin),
		EmotionReports:  event(metrics.EventEmotion),
		Messages:        event(metrics.EventMessage),
		Replies:         event(metrics.EventReply),
		CacheHits:       m.IntWithLabel(metrics.MetricCacheLookups, "result", "hit"),
		CacheMisses:     m.IntWithLabel(metrics.MetricCacheLookups, "result", "miss"),
	}, nil
}
