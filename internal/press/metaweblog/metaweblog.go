// Package metaweblog speaks the MetaWeblog XML-RPC API shared by Seesaa
// and FC2. Neither platform schedules posts server-side, so scheduled
// publishing is emulated: drafts carry their deadline in the title and
// the reconciler promotes them through EditPost.
package metaweblog

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/presslane/pressgang/internal/press"
)

const (
	defaultRecentCount = 100
	defaultTimeout     = 30 * time.Second
)

// Config carries the per-blog settings. Platform only affects the
// provider name; Seesaa and FC2 share the wire protocol.
type Config struct {
	Platform    string
	Endpoint    string
	BlogID      string
	Username    string
	Password    string
	RecentCount int
	Timeout     time.Duration
}

// Client implements press.Publisher over one MetaWeblog endpoint.
type Client struct {
	name string
	cfg  Config
	rpc  *xmlrpc.Client
}

// New validates the config and dials the XML-RPC endpoint.
func New(cfg Config) (*Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Platform))
	if name == "" {
		name = "metaweblog"
	}

	var missing []string
	if strings.TrimSpace(cfg.Endpoint) == "" {
		missing = append(missing, "endpoint")
	}
	if strings.TrimSpace(cfg.BlogID) == "" {
		missing = append(missing, "blog_id")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return nil, press.MissingConfigError{Provider: name, Fields: missing}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rpcClient, err := xmlrpc.NewClient(cfg.Endpoint, &http.Transport{ResponseHeaderTimeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}

	return &Client{name: name, cfg: cfg, rpc: rpcClient}, nil
}

// Name identifies the provider (seesaa or fc2).
func (c *Client) Name() string { return c.name }

// Capabilities reports no native scheduling and no asset upload.
func (c *Client) Capabilities() press.Capabilities { return press.Capabilities{} }

// call runs one XML-RPC method, honoring context cancellation.
func (c *Client) call(ctx context.Context, method string, args []any, reply any) error {
	done := make(chan error, 1)
	go func() { done <- c.rpc.Call(method, args, reply) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// CreatePost issues metaWeblog.newPost. The draft/publish split maps to
// the protocol's publish boolean; a future status never reaches this
// client, the intent resolver downgrades it to a tagged draft first.
func (c *Client) CreatePost(ctx context.Context, draft press.Draft) (press.Result, error) {
	content := map[string]any{
		"title":       draft.Title,
		"description": draft.BodyHTML,
	}
	var postID any
	args := []any{c.cfg.BlogID, c.cfg.Username, c.cfg.Password, content, draft.Status.Published()}
	if err := c.call(ctx, "metaWeblog.newPost", args, &postID); err != nil {
		return press.Result{}, fmt.Errorf("new post: %w", err)
	}
	return press.Result{ID: stringify(postID), Status: draft.Status}, nil
}

// UploadAsset is not available through this API surface.
func (c *Client) UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error) {
	return "", press.UnsupportedError{Provider: c.name, Op: "asset upload"}
}

// RecentPosts issues metaWeblog.getRecentPosts, drafts included.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]press.PostRecord, error) {
	if limit <= 0 {
		limit = c.cfg.RecentCount
	}
	if limit <= 0 {
		limit = defaultRecentCount
	}

	var raw []any
	args := []any{c.cfg.BlogID, c.cfg.Username, c.cfg.Password, limit}
	if err := c.call(ctx, "metaWeblog.getRecentPosts", args, &raw); err != nil {
		return nil, fmt.Errorf("get recent posts: %w", err)
	}

	records := make([]press.PostRecord, 0, len(raw))
	for _, item := range raw {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		records = append(records, recordFromStruct(fields))
	}
	return records, nil
}

// EditPost issues metaWeblog.editPost with the publish flag derived from
// the requested status.
func (c *Client) EditPost(ctx context.Context, id, title, body string, status press.Status) error {
	content := map[string]any{
		"title":       title,
		"description": body,
	}
	var reply any
	args := []any{id, c.cfg.Username, c.cfg.Password, content, status.Published()}
	if err := c.call(ctx, "metaWeblog.editPost", args, &reply); err != nil {
		return fmt.Errorf("edit post %s: %w", id, err)
	}
	return nil
}

// recordFromStruct maps one getRecentPosts struct defensively: servers
// disagree on key casing (postid vs postId) and on which optional
// fields they emit.
func recordFromStruct(fields map[string]any) press.PostRecord {
	id := stringField(fields, "postid")
	if id == "" {
		id = stringField(fields, "postId")
	}

	status := press.StatusDraft
	if strings.EqualFold(stringField(fields, "post_status"), "publish") {
		status = press.StatusPublish
	}

	record := press.PostRecord{
		ID:     id,
		Title:  stringField(fields, "title"),
		Body:   stringField(fields, "description"),
		Status: status,
		Extra:  map[string]string{},
	}
	for key, value := range fields {
		switch key {
		case "postid", "postId", "title", "description":
			continue
		}
		record.Extra[key] = stringify(value)
	}
	return record
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok {
		return ""
	}
	return stringify(value)
}

// stringify flattens the handful of scalar types XML-RPC servers use
// interchangeably for ids and flags.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", v)
	}
}
