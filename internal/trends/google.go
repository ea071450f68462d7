// Package trends looks up related search queries on Google Trends.
package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNoRelatedQueries is returned when the explore response has no
// related-queries widget for the keyword.
var ErrNoRelatedQueries = errors.New("no related queries widget")

// ErrNoTopQueries is returned when the related-queries result has no "top" list.
var ErrNoTopQueries = errors.New("no top related queries")

const (
	explorePath         = "/trends/api/explore"
	relatedSearchesPath = "/trends/api/widgetdata/relatedsearches"
	relatedWidgetPrefix = "RELATED_QUERIES"
)

// Config controls the Google Trends client.
type Config struct {
	BaseURL   string
	HL        string
	TZ        int
	Timeframe string
	Geo       string
	UserAgent string
	Timeout   time.Duration
}

// GoogleClient implements blog.TrendSource against the Google Trends web API.
type GoogleClient struct {
	client *resty.Client
	cfg    Config
	logger *zap.Logger
}

// NewGoogleClient builds a client. The underlying resty client keeps a cookie
// jar so the session cookie from the warm-up request is reused.
func NewGoogleClient(cfg Config, logger *zap.Logger) *GoogleClient {
	if cfg.HL == "" {
		cfg.HL = "en-US"
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "today 12-m"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &GoogleClient{client: client, cfg: cfg, logger: logger}
}

// RelatedQueries returns the "top" related queries for keyword, best first.
func (c *GoogleClient) RelatedQueries(ctx context.Context, keyword string) ([]string, error) {
	c.warmUp(ctx)

	w, err := c.relatedWidget(ctx, keyword)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hl":    c.cfg.HL,
			"tz":    strconv.Itoa(c.cfg.TZ),
			"req":   string(w.Request),
			"token": w.Token,
		}).
		Get(relatedSearchesPath)
	if err != nil {
		return nil, fmt.Errorf("fetch related searches: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("related searches returned status %d body: %s",
			resp.StatusCode(), responseSnippet(resp.Body()))
	}

	var related relatedResponse
	if err := decodeGuarded(resp.Body(), &related); err != nil {
		return nil, fmt.Errorf("decode related searches: %w", err)
	}
	if len(related.Default.RankedList) == 0 {
		return nil, ErrNoTopQueries
	}
	top := related.Default.RankedList[0].RankedKeyword
	queries := make([]string, 0, len(top))
	for _, kw := range top {
		if q := strings.TrimSpace(kw.Query); q != "" {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, ErrNoTopQueries
	}
	return queries, nil
}

// warmUp requests the landing page to obtain the NID cookie. Failures are
// ignored; the explore call reports any real problem.
func (c *GoogleClient) warmUp(ctx context.Context) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("geo", c.cfg.Geo).
		Get("/")
	if err != nil {
		c.logger.Debug("trends warm-up failed", zap.Error(err))
		return
	}
	c.logger.Debug("trends warm-up done", zap.Int("status", resp.StatusCode()))
}

func (c *GoogleClient) relatedWidget(ctx context.Context, keyword string) (widget, error) {
	req, err := json.Marshal(exploreRequest{
		ComparisonItem: []comparisonItem{{
			Keyword: keyword,
			Time:    c.cfg.Timeframe,
			Geo:     c.cfg.Geo,
		}},
		Category: 0,
		Property: "",
	})
	if err != nil {
		return widget{}, fmt.Errorf("marshal explore request: %w", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"hl":  c.cfg.HL,
			"tz":  strconv.Itoa(c.cfg.TZ),
			"req": string(req),
		}).
		Get(explorePath)
	if err != nil {
		return widget{}, fmt.Errorf("fetch explore: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return widget{}, fmt.Errorf("explore returned status %d body: %s",
			resp.StatusCode(), responseSnippet(resp.Body()))
	}

	var explore exploreResponse
	if err := decodeGuarded(resp.Body(), &explore); err != nil {
		return widget{}, fmt.Errorf("decode explore: %w", err)
	}
	for _, w := range explore.Widgets {
		if strings.HasPrefix(w.ID, relatedWidgetPrefix) && w.Token != "" {
			return w, nil
		}
	}
	return widget{}, ErrNoRelatedQueries
}

// decodeGuarded strips the anti-XSSI prefix Google puts before the JSON body.
func decodeGuarded(body []byte, dst any) error {
	start := bytes.IndexByte(body, '{')
	if start < 0 {
		return fmt.Errorf("no JSON object in body: %s", responseSnippet(body))
	}
	if err := json.Unmarshal(body[start:], dst); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

type exploreRequest struct {
	ComparisonItem []comparisonItem `json:"comparisonItem"`
	Category       int              `json:"category"`
	Property       string           `json:"property"`
}

type comparisonItem struct {
	Keyword string `json:"keyword"`
	Time    string `json:"time"`
	Geo     string `json:"geo"`
}

type exploreResponse struct {
	Widgets []widget `json:"widgets"`
}

type widget struct {
	ID      string          `json:"id"`
	Token   string          `json:"token"`
	Request json.RawMessage `json:"request"`
}

type relatedResponse struct {
	Default struct {
		RankedList []struct {
			RankedKeyword []struct {
				Query string `json:"query"`
			} `json:"rankedKeyword"`
		} `json:"rankedList"`
	} `json:"default"`
}
