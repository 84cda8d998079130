// Package blogger publishes through the Blogger v3 API using
// service-account credentials.
package blogger

import (
	"context"
	"fmt"
	"strings"

	bloggerapi "google.golang.org/api/blogger/v3"
	"google.golang.org/api/option"

	"github.com/presslane/pressgang/internal/press"
)

const providerName = "blogger"

// Config carries the per-blog settings. ServiceAccountJSON is the raw
// key file content.
type Config struct {
	BlogID             string
	ServiceAccountJSON []byte
}

// Client implements press.Publisher against one Blogger blog.
type Client struct {
	blogID string
	svc    *bloggerapi.Service
}

// New validates the config and builds the API service.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.BlogID) == "" {
		missing = append(missing, "blog_id")
	}
	if len(cfg.ServiceAccountJSON) == 0 {
		missing = append(missing, "service_account")
	}
	if len(missing) > 0 {
		return nil, press.MissingConfigError{Provider: providerName, Fields: missing}
	}

	svc, err := bloggerapi.NewService(ctx,
		option.WithCredentialsJSON(cfg.ServiceAccountJSON),
		option.WithScopes(bloggerapi.BloggerScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create blogger service: %w", err)
	}
	return &Client{blogID: cfg.BlogID, svc: svc}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Capabilities reports no native scheduling through this surface; like
// the XML-RPC platforms, Blogger schedules are emulated via title tags.
func (c *Client) Capabilities() press.Capabilities { return press.Capabilities{} }

// CreatePost inserts a post, as draft or live per the requested status.
func (c *Client) CreatePost(ctx context.Context, draft press.Draft) (press.Result, error) {
	post := &bloggerapi.Post{
		Kind:    "blogger#post",
		Title:   draft.Title,
		Content: draft.BodyHTML,
	}
	created, err := c.svc.Posts.Insert(c.blogID, post).
		IsDraft(!draft.Status.Published()).
		Context(ctx).
		Do()
	if err != nil {
		return press.Result{}, fmt.Errorf("insert post: %w", err)
	}
	return press.Result{
		ID:     created.Id,
		Status: statusFromAPI(created.Status),
		URL:    created.Url,
	}, nil
}

// UploadAsset is not available through the Blogger API.
func (c *Client) UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error) {
	return "", press.UnsupportedError{Provider: providerName, Op: "asset upload"}
}

// RecentPosts lists recent posts, drafts included, with bodies fetched
// so a later promotion can resend them unchanged.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]press.PostRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	list, err := c.svc.Posts.List(c.blogID).
		Status("draft", "live", "scheduled").
		MaxResults(int64(limit)).
		FetchBodies(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	records := make([]press.PostRecord, 0, len(list.Items))
	for _, item := range list.Items {
		records = append(records, press.PostRecord{
			ID:     item.Id,
			Title:  item.Title,
			Body:   item.Content,
			Status: statusFromAPI(item.Status),
		})
	}
	return records, nil
}

// EditPost patches title and body, then publishes when the requested
// status asks for it.
func (c *Client) EditPost(ctx context.Context, id, title, body string, status press.Status) error {
	patch := &bloggerapi.Post{Title: title, Content: body}
	if _, err := c.svc.Posts.Patch(c.blogID, id, patch).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch post %s: %w", id, err)
	}
	if status.Published() {
		if _, err := c.svc.Posts.Publish(c.blogID, id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("publish post %s: %w", id, err)
		}
	}
	return nil
}

func statusFromAPI(status string) press.Status {
	switch strings.ToUpper(status) {
	case "LIVE":
		return press.StatusPublish
	case "SCHEDULED":
		return press.StatusFuture
	default:
		return press.StatusDraft
	}
}
