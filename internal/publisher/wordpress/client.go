// Package wordpress creates posts through the WordPress REST API using an
// application password.
package wordpress

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JakeFAU/autoblog/internal/blog"
)

// DefaultStatus publishes posts immediately.
const DefaultStatus = "publish"

// Config holds the endpoint and credentials.
type Config struct {
	// URL is the posts collection, e.g. https://example.com/wp-json/wp/v2/posts.
	URL         string
	Username    string
	AppPassword string
	// Status is sent as the post status; "draft" holds posts for review.
	Status    string
	Timeout   time.Duration
	UserAgent string
}

// Client implements blog.ContentStore.
type Client struct {
	client *resty.Client
	cfg    Config
}

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Status == "" {
		cfg.Status = DefaultStatus
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.Username, cfg.AppPassword).
		SetHeader("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	return &Client{client: client, cfg: cfg}
}

// CreatePost POSTs the article. Any HTTP response, including error statuses,
// is returned as a StoreResponse; only transport failures return an error.
func (c *Client) CreatePost(ctx context.Context, article blog.Article) (blog.StoreResponse, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(createPostRequest{
			Title:   article.Title,
			Content: article.Body,
			Status:  c.cfg.Status,
		}).
		Post(c.cfg.URL)
	if err != nil {
		return blog.StoreResponse{}, fmt.Errorf("create post: %w", err)
	}
	return blog.StoreResponse{StatusCode: resp.StatusCode(), Body: resp.String()}, nil
}
