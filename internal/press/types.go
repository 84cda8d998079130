package press

import (
	"context"
	"time"
)

// Status is the platform-neutral post state. The values double as the
// WordPress wire vocabulary; XML-RPC platforms collapse them to a
// publish boolean via Published.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusPublish Status = "publish"
	StatusFuture  Status = "future"
)

// Published reports whether the status maps to the publish flag used by
// the MetaWeblog platforms.
func (s Status) Published() bool { return s == StatusPublish }

// Draft is the input to CreatePost.
type Draft struct {
	Title           string
	BodyHTML        string
	Slug            string
	CategoryIDs     []int
	FeaturedAssetID string
	Status          Status
	PublishAt       time.Time // zero unless the platform schedules server-side
}

// PostRecord is a post as reported back by a platform.
type PostRecord struct {
	ID     string
	Title  string
	Body   string
	Status Status
	Extra  map[string]string
}

// Result describes a created post.
type Result struct {
	ID     string
	Status Status
	URL    string
}

// Capabilities describes what a platform can do beyond plain create.
type Capabilities struct {
	// NativeScheduling means future-dated posts are published by the
	// platform itself. Without it a schedule is emulated: the post is
	// stored as a draft with the deadline encoded in its title, and the
	// reconciler flips it later.
	NativeScheduling bool
	AssetUpload      bool
}

// Publisher abstracts a blogging platform that can accept content.
type Publisher interface {
	Name() string
	Capabilities() Capabilities
	CreatePost(ctx context.Context, draft Draft) (Result, error)
	UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error)
	RecentPosts(ctx context.Context, limit int) ([]PostRecord, error)
	EditPost(ctx context.Context, id, title, body string, status Status) error
}
