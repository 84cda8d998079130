// Package livedoor publishes by emulating the browser flow of the blog
// admin: cookie login, fetch the compose form, harvest its hidden
// inputs (including CSRF tokens), then submit the article fields. Some
// deployments confirm before committing, so both a single-submit and a
// confirm-then-final flow are supported. Every form field name is
// configurable because the admin markup is not a stable API.
package livedoor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/fallback"
)

const (
	providerName   = "livedoor"
	defaultTimeout = 30 * time.Second
	userAgent      = "Mozilla/5.0"
)

// Config drives the form emulation.
type Config struct {
	LoginURL       string
	NewPostURL     string
	SubmitURL      string
	ConfirmURL     string
	FinalSubmitURL string

	Username string
	Password string

	UsernameField string // default "livedoor_id"
	PasswordField string // default "password"
	TitleField    string // default "title"
	BodyField     string // default "body"
	PublishField  string
	PublishValue  string // default "1"
	DraftField    string
	DraftValue    string // default "1"
	CSRFSelector  string
	CSRFField     string // default "csrf_token"
	Extra         map[string]string

	Timeout time.Duration
}

// Client implements press.Publisher over one blog admin session.
type Client struct {
	cfg Config
	hc  *http.Client
}

// New validates the config and prepares a cookie-carrying session.
func New(cfg Config) (*Client, error) {
	var missing []string
	if strings.TrimSpace(cfg.LoginURL) == "" {
		missing = append(missing, "login_url")
	}
	if strings.TrimSpace(cfg.NewPostURL) == "" {
		missing = append(missing, "new_post_url")
	}
	if strings.TrimSpace(cfg.Username) == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		missing = append(missing, "password")
	}
	if cfg.SubmitURL == "" && (cfg.ConfirmURL == "" || cfg.FinalSubmitURL == "") {
		missing = append(missing, "submit_url")
	}
	if len(missing) > 0 {
		return nil, press.MissingConfigError{Provider: providerName, Fields: missing}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		cfg: withDefaults(cfg),
		hc:  &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.UsernameField == "" {
		cfg.UsernameField = "livedoor_id"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}
	if cfg.TitleField == "" {
		cfg.TitleField = "title"
	}
	if cfg.BodyField == "" {
		cfg.BodyField = "body"
	}
	if cfg.PublishValue == "" {
		cfg.PublishValue = "1"
	}
	if cfg.DraftValue == "" {
		cfg.DraftValue = "1"
	}
	if cfg.CSRFField == "" {
		cfg.CSRFField = "csrf_token"
	}
	return cfg
}

// Name identifies the provider.
func (c *Client) Name() string { return providerName }

// Capabilities reports nothing beyond plain create; the admin form
// cannot be read back, so this platform cannot be reconciled either.
func (c *Client) Capabilities() press.Capabilities { return press.Capabilities{} }

// CreatePost logs in, harvests the compose form, and submits the
// article. The platform assigns no readable id through this flow, so
// the result carries only the requested status.
func (c *Client) CreatePost(ctx context.Context, draft press.Draft) (press.Result, error) {
	if err := c.login(ctx); err != nil {
		return press.Result{}, err
	}

	payload, err := c.composeForm(ctx)
	if err != nil {
		return press.Result{}, err
	}
	payload.Set(c.cfg.TitleField, draft.Title)
	payload.Set(c.cfg.BodyField, draft.BodyHTML)

	publish := draft.Status.Published()
	if publish && c.cfg.PublishField != "" {
		payload.Set(c.cfg.PublishField, c.cfg.PublishValue)
	}
	if !publish && c.cfg.DraftField != "" {
		payload.Set(c.cfg.DraftField, c.cfg.DraftValue)
	}
	for key, value := range c.cfg.Extra {
		payload.Set(key, value)
	}

	if c.cfg.ConfirmURL != "" && c.cfg.FinalSubmitURL != "" {
		if err := c.submitConfirmed(ctx, payload); err != nil {
			return press.Result{}, err
		}
	} else if err := c.submitForm(ctx, c.cfg.SubmitURL, payload); err != nil {
		return press.Result{}, fmt.Errorf("submit: %w", err)
	}

	return press.Result{Status: draft.Status}, nil
}

// UploadAsset is not available through the form flow.
func (c *Client) UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error) {
	return "", press.UnsupportedError{Provider: providerName, Op: "asset upload"}
}

// RecentPosts is not available: the admin form cannot be read back.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]press.PostRecord, error) {
	return nil, press.UnsupportedError{Provider: providerName, Op: "listing posts"}
}

// EditPost is not available through the form flow.
func (c *Client) EditPost(ctx context.Context, id, title, body string, status press.Status) error {
	return press.UnsupportedError{Provider: providerName, Op: "editing posts"}
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set(c.cfg.UsernameField, c.cfg.Username)
	form.Set(c.cfg.PasswordField, c.cfg.Password)
	if err := c.submitForm(ctx, c.cfg.LoginURL, form); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}

// composeForm fetches the new-post page and harvests its hidden inputs,
// plus the CSRF token when a selector is configured.
func (c *Client) composeForm(ctx context.Context) (url.Values, error) {
	doc, err := c.document(ctx, http.MethodGet, c.cfg.NewPostURL, nil)
	if err != nil {
		return nil, fmt.Errorf("open new post page: %w", err)
	}

	payload := hiddenInputs(doc)
	if c.cfg.CSRFSelector != "" {
		node := doc.Find(c.cfg.CSRFSelector).First()
		if node.Length() == 0 {
			return nil, press.ValidationError{Provider: providerName, Reason: "csrf token not found (selector mismatch)"}
		}
		value, _ := node.Attr("value")
		payload.Set(c.cfg.CSRFField, value)
	}
	return payload, nil
}

// submitConfirmed posts to the confirm page, carries its hidden inputs
// forward, and commits through the final submit URL.
func (c *Client) submitConfirmed(ctx context.Context, payload url.Values) error {
	doc, err := c.document(ctx, http.MethodPost, c.cfg.ConfirmURL, payload)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	final := hiddenInputs(doc)
	if err := c.submitForm(ctx, c.cfg.FinalSubmitURL, final); err != nil {
		return fmt.Errorf("final submit: %w", err)
	}
	return nil
}

func hiddenInputs(doc *goquery.Document) url.Values {
	payload := url.Values{}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, sel *goquery.Selection) {
		name, ok := sel.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := sel.Attr("value")
		payload.Set(name, value)
	})
	return payload
}

// document requests a page within the session and parses it.
func (c *Client) document(ctx context.Context, method, target string, form url.Values) (*goquery.Document, error) {
	resp, err := c.do(ctx, method, target, form)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// submitForm posts a form and discards the response body.
func (c *Client) submitForm(ctx context.Context, target string, form url.Values) error {
	resp, err := c.do(ctx, http.MethodPost, target, form)
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// do issues one request in the session, treating every >=400 response
// as a failure carrying the status and a truncated body.
func (c *Client) do(ctx context.Context, method, target string, form url.Values) (*http.Response, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		resp.Body.Close()
		return nil, &fallback.StatusError{Code: resp.StatusCode, Body: string(detail)}
	}
	return resp, nil
}
