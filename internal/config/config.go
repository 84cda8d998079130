// Package config loads the account book: one fixed local offset shared
// by every schedule computation, plus per-account platform settings.
// Components never reach into ambient state; each gets its settings
// handed to it from here.
package config

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/blogger"
	"github.com/presslane/pressgang/internal/press/livedoor"
	"github.com/presslane/pressgang/internal/press/metaweblog"
	"github.com/presslane/pressgang/internal/press/titletag"
	"github.com/presslane/pressgang/internal/press/wordpress"
)

// DefaultOffset is the deployment's historical fixed offset (JST).
const DefaultOffset = "+09:00"

// Config is the on-disk configuration.
type Config struct {
	Offset   string             `yaml:"offset"`
	Accounts map[string]Account `yaml:"accounts"`
}

// Account holds one account's settings. The field set is the union over
// platforms; each constructor picks the fields it needs and reports the
// missing ones by name.
type Account struct {
	Platform string `yaml:"platform"`
	Label    string `yaml:"label"`

	// WordPress
	URL         string         `yaml:"url"`
	AppPassword string         `yaml:"app_password"`
	SlugMode    string         `yaml:"slug_mode"`
	Categories  map[string]int `yaml:"categories"`

	// MetaWeblog (Seesaa, FC2)
	Endpoint    string `yaml:"endpoint"`
	BlogID      string `yaml:"blog_id"`
	RecentCount int    `yaml:"recent_count"`

	// Blogger
	ServiceAccount string `yaml:"service_account"`

	// Livedoor
	LoginURL       string            `yaml:"login_url"`
	NewPostURL     string            `yaml:"new_post_url"`
	SubmitURL      string            `yaml:"submit_url"`
	ConfirmURL     string            `yaml:"confirm_url"`
	FinalSubmitURL string            `yaml:"final_submit_url"`
	UsernameField  string            `yaml:"username_field"`
	PasswordField  string            `yaml:"password_field"`
	TitleField     string            `yaml:"title_field"`
	BodyField      string            `yaml:"body_field"`
	PublishField   string            `yaml:"publish_field"`
	PublishValue   string            `yaml:"publish_value"`
	DraftField     string            `yaml:"draft_field"`
	DraftValue     string            `yaml:"draft_value"`
	CSRFSelector   string            `yaml:"csrf_selector"`
	CSRFField      string            `yaml:"csrf_field"`
	ExtraFields    map[string]string `yaml:"extra_fields"`

	// Shared
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Timeout  string `yaml:"timeout"`

	// NativeScheduling overrides the platform default (true only for
	// wordpress) when set.
	NativeScheduling *bool `yaml:"native_scheduling"`
}

// DefaultPath returns the conventional config location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "pressgang", "config.yaml"), nil
}

// Load reads and validates the config file. Unknown keys are rejected
// so a typoed field never silently disables a platform.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Offset == "" {
		cfg.Offset = DefaultOffset
	}
	if _, err := parseOffset(cfg.Offset); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Codec builds the title-tag codec for the configured offset.
func (c *Config) Codec() (titletag.Codec, error) {
	offset, err := parseOffset(c.Offset)
	if err != nil {
		return titletag.Codec{}, err
	}
	return titletag.New(offset), nil
}

// SupportsNativeScheduling reports whether this account's platform
// publishes future-dated posts on its own.
func (a Account) SupportsNativeScheduling() bool {
	if a.NativeScheduling != nil {
		return *a.NativeScheduling
	}
	return strings.EqualFold(a.Platform, "wordpress")
}

// Reconcilable reports whether the reconciler can sweep this account:
// it must pseudo-schedule and the platform must support reading posts
// back. Livedoor drafts cannot be listed, so they are out.
func (a Account) Reconcilable() bool {
	if a.SupportsNativeScheduling() {
		return false
	}
	return !strings.EqualFold(a.Platform, "livedoor")
}

// Publisher builds the platform client for this account.
func (a Account) Publisher(ctx context.Context) (press.Publisher, error) {
	timeout, err := a.timeout()
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(a.Platform) {
	case "wordpress":
		return wordpress.New(wordpress.Config{
			BaseURL:     a.URL,
			Username:    a.Username,
			AppPassword: a.AppPassword,
			Timeout:     timeout,
		})
	case "seesaa", "fc2":
		return metaweblog.New(metaweblog.Config{
			Platform:    strings.ToLower(a.Platform),
			Endpoint:    a.Endpoint,
			BlogID:      a.BlogID,
			Username:    a.Username,
			Password:    a.Password,
			RecentCount: a.RecentCount,
			Timeout:     timeout,
		})
	case "blogger":
		return blogger.New(ctx, blogger.Config{
			BlogID:             a.BlogID,
			ServiceAccountJSON: []byte(a.ServiceAccount),
		})
	case "livedoor":
		return livedoor.New(livedoor.Config{
			LoginURL:       a.LoginURL,
			NewPostURL:     a.NewPostURL,
			SubmitURL:      a.SubmitURL,
			ConfirmURL:     a.ConfirmURL,
			FinalSubmitURL: a.FinalSubmitURL,
			Username:       a.Username,
			Password:       a.Password,
			UsernameField:  a.UsernameField,
			PasswordField:  a.PasswordField,
			TitleField:     a.TitleField,
			BodyField:      a.BodyField,
			PublishField:   a.PublishField,
			PublishValue:   a.PublishValue,
			DraftField:     a.DraftField,
			DraftValue:     a.DraftValue,
			CSRFSelector:   a.CSRFSelector,
			CSRFField:      a.CSRFField,
			Extra:          a.ExtraFields,
			Timeout:        timeout,
		})
	case "":
		return nil, fmt.Errorf("account has no platform")
	default:
		return nil, fmt.Errorf("unsupported platform %q", a.Platform)
	}
}

func (a Account) timeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse timeout %q: %w", a.Timeout, err)
	}
	return d, nil
}

// parseOffset reads offsets like "+09:00", "-05:30", or "+9".
func parseOffset(s string) (time.Duration, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, fmt.Errorf("empty offset")
	}
	sign := time.Duration(1)
	switch t[0] {
	case '+':
		t = t[1:]
	case '-':
		sign = -1
		t = t[1:]
	}
	hoursPart, minutesPart := t, "0"
	if i := strings.IndexByte(t, ':'); i >= 0 {
		hoursPart, minutesPart = t[:i], t[i+1:]
	}
	hours, err := strconv.Atoi(hoursPart)
	if err != nil || hours > 14 {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	minutes, err := strconv.Atoi(minutesPart)
	if err != nil || minutes > 59 {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return sign * (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute), nil
}
