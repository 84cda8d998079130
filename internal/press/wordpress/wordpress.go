// Package wordpress targets the WordPress REST API with application
// passwords. Two addressing conventions are live in the wild,
// ?rest_route= query routing and /wp-json/ pretty permalinks, and a
// given site may honor only one of them, so every call goes through the
// fallback executor with both candidates.
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/fallback"
)

const providerName = "wordpress"

// dateGMTFormat is the naive UTC timestamp WordPress expects in date_gmt.
const dateGMTFormat = "2006-01-02T15:04:05"

// Config carries the per-site settings.
type Config struct {
	BaseURL     string
	Username    string
	AppPassword string
	Timeout     time.Duration
}

// Client implements press.Publisher against one WordPress site.
type Client struct {
	base string
	user string
	pass string
	exec *fallback.Executor
}

// New validates the config and builds a client. The request timeout
// defaults to the executor's 30 seconds.
func New(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.BaseURL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(cfg.AppPassword) == "" {
		missing = append(missing, "app_password")
	}
	if len(missing) > 0 {
		return nil, press.MissingConfigError{Provider: providerName, Fields: missing}
	}

	return &Client{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		user: cfg.Username,
		pass: cfg.AppPassword,
		exec: fallback.New(cfg.Timeout),
	}, nil
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Capabilities reports native scheduling and media upload support.
func (c *Client) Capabilities() press.Capabilities {
	return press.Capabilities{NativeScheduling: true, AssetUpload: true}
}

// endpoints returns both addressing conventions for one API path, in
// fallback priority order.
func (c *Client) endpoints(path string, query url.Values) []string {
	candidates := []string{
		c.base + "/?rest_route=/wp/v2" + path,
		c.base + "/wp-json/wp/v2" + path,
	}
	if len(query) > 0 {
		for i, candidate := range candidates {
			sep := "?"
			if strings.Contains(candidate, "?") {
				sep = "&"
			}
			candidates[i] = candidate + sep + query.Encode()
		}
	}
	return candidates
}

type postPayload struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Status        string `json:"status"`
	Categories    []int  `json:"categories,omitempty"`
	FeaturedMedia int    `json:"featured_media,omitempty"`
	Slug          string `json:"slug,omitempty"`
	DateGMT       string `json:"date_gmt,omitempty"`
}

type renderable struct {
	Raw      string `json:"raw"`
	Rendered string `json:"rendered"`
}

func (r renderable) value() string {
	if r.Raw != "" {
		return r.Raw
	}
	return r.Rendered
}

type postResponse struct {
	ID      int        `json:"id"`
	Status  string     `json:"status"`
	Link    string     `json:"link"`
	Title   renderable `json:"title"`
	Content renderable `json:"content"`
}

// CreatePost publishes a new post. A non-zero PublishAt forces the
// future status with date_gmt set, so the site publishes it server-side
// at that instant.
func (c *Client) CreatePost(ctx context.Context, draft press.Draft) (press.Result, error) {
	payload := postPayload{
		Title:      draft.Title,
		Content:    draft.BodyHTML,
		Status:     string(draft.Status),
		Categories: draft.CategoryIDs,
		Slug:       draft.Slug,
	}
	if draft.FeaturedAssetID != "" {
		mediaID, err := strconv.Atoi(draft.FeaturedAssetID)
		if err != nil {
			return press.Result{}, press.ValidationError{
				Provider: providerName,
				Reason:   fmt.Sprintf("featured media id %q is not numeric", draft.FeaturedAssetID),
			}
		}
		payload.FeaturedMedia = mediaID
	}
	if !draft.PublishAt.IsZero() {
		payload.DateGMT = draft.PublishAt.UTC().Format(dateGMTFormat)
		payload.Status = string(press.StatusFuture)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return press.Result{}, fmt.Errorf("encode post: %w", err)
	}

	resp, err := c.exec.Do(ctx, fallback.Request{
		Method:    http.MethodPost,
		Body:      body,
		Header:    http.Header{"Content-Type": []string{"application/json"}},
		BasicUser: c.user,
		BasicPass: c.pass,
	}, c.endpoints("/posts", nil))
	if err != nil {
		return press.Result{}, fmt.Errorf("create post: %w", err)
	}

	var created postResponse
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return press.Result{}, fmt.Errorf("decode create response: %w", err)
	}
	return press.Result{
		ID:     strconv.Itoa(created.ID),
		Status: press.Status(created.Status),
		URL:    created.Link,
	}, nil
}

// UploadAsset sends raw bytes to the media endpoint and returns the new
// attachment id.
func (c *Client) UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error) {
	header := http.Header{
		"Content-Disposition": []string{fmt.Sprintf("attachment; filename=%s", filename)},
		"Content-Type":        []string{mime},
	}
	resp, err := c.exec.Do(ctx, fallback.Request{
		Method:    http.MethodPost,
		Body:      data,
		Header:    header,
		BasicUser: c.user,
		BasicPass: c.pass,
	}, c.endpoints("/media", nil))
	if err != nil {
		return "", fmt.Errorf("upload media: %w", err)
	}

	var media struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &media); err != nil {
		return "", fmt.Errorf("decode media response: %w", err)
	}
	return strconv.Itoa(media.ID), nil
}

// RecentPosts lists recent posts across draft, future, and published
// states, with raw (unrendered) titles so schedule tags survive intact.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]press.PostRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("context", "edit")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("status", "draft,future,publish")

	resp, err := c.exec.Do(ctx, fallback.Request{
		Method:    http.MethodGet,
		BasicUser: c.user,
		BasicPass: c.pass,
	}, c.endpoints("/posts", query))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	var items []postResponse
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("decode post list: %w", err)
	}
	records := make([]press.PostRecord, 0, len(items))
	for _, item := range items {
		records = append(records, press.PostRecord{
			ID:     strconv.Itoa(item.ID),
			Title:  item.Title.value(),
			Body:   item.Content.value(),
			Status: press.Status(item.Status),
		})
	}
	return records, nil
}

// EditPost updates title, body, and status of an existing post.
func (c *Client) EditPost(ctx context.Context, id, title, body string, status press.Status) error {
	payload := postPayload{Title: title, Content: body, Status: string(status)}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode edit: %w", err)
	}

	_, err = c.exec.Do(ctx, fallback.Request{
		Method:    http.MethodPost,
		Body:      encoded,
		Header:    http.Header{"Content-Type": []string{"application/json"}},
		BasicUser: c.user,
		BasicPass: c.pass,
	}, c.endpoints("/posts/"+url.PathEscape(id), nil))
	if err != nil {
		return fmt.Errorf("edit post %s: %w", id, err)
	}
	return nil
}
