// Package reconcile promotes pseudo-scheduled drafts. Platforms without
// server-side scheduling store a draft whose title carries its deadline;
// a periodic run of this package compares those deadlines against the
// clock and flips every overdue draft to published with a cleaned title.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/presslane/pressgang/internal/logutil"
	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/titletag"
)

// DefaultRecentCount is how many recent posts an account sweep inspects
// when the account does not configure a count of its own.
const DefaultRecentCount = 100

// PostEditor is the single platform operation the reconciler needs.
type PostEditor interface {
	EditPost(ctx context.Context, id, title, body string, status press.Status) error
}

// PostError ties a failed promotion to the post it belongs to.
type PostError struct {
	ID  string
	Err error
}

func (e PostError) Error() string { return fmt.Sprintf("post %s: %v", e.ID, e.Err) }
func (e PostError) Unwrap() error { return e.Err }

// Outcome reports one batch: how many posts were promoted and which
// promotions failed. Failures never abort the batch; every post gets
// its own verdict.
type Outcome struct {
	Promoted int
	Errors   []error
}

// Target names one account to sweep. Open is called per sweep so a
// broken account surfaces as that account's failure instead of taking
// the whole run down.
type Target struct {
	Name  string
	Limit int
	Open  func(ctx context.Context) (press.Publisher, error)
}

// SweepResult aggregates a multi-account run.
type SweepResult struct {
	Promoted int
	Failures map[string]error
}

// Reconciler decides which drafts are due. The clock is injected so the
// due boundary can be pinned in tests.
type Reconciler struct {
	codec titletag.Codec
	now   func() time.Time
}

// New builds a reconciler around the deployment's tag codec. A nil now
// falls back to time.Now.
func New(codec titletag.Codec, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{codec: codec, now: now}
}

// Run scans one batch of posts and promotes every due draft.
//
// A post is a candidate only when its title decodes to a schedule tag;
// untagged and malformed titles are skipped no matter their status. A
// candidate is due when its deadline is at or before now, with now
// truncated to the minute so a post scheduled for exactly this minute
// always qualifies. Promotion rewrites the title to the decode
// remainder (falling back to the original title when the remainder is
// empty), keeps the body untouched, and sets the status to published.
func (r *Reconciler) Run(ctx context.Context, editor PostEditor, posts []press.PostRecord) Outcome {
	now := r.now().In(r.codec.Location()).Truncate(time.Minute)

	var out Outcome
	for _, post := range posts {
		scheduledAt, rest, ok := r.codec.Decode(post.Title)
		if !ok {
			continue
		}
		if scheduledAt.After(now) {
			continue
		}

		cleaned := strings.TrimSpace(rest)
		if cleaned == "" {
			cleaned = post.Title
		}

		if err := editor.EditPost(ctx, post.ID, cleaned, post.Body, press.StatusPublish); err != nil {
			out.Errors = append(out.Errors, PostError{ID: post.ID, Err: err})
			continue
		}
		logutil.Infof("published post %s: %q", post.ID, cleaned)
		out.Promoted++
	}
	return out
}

// Sweep runs the reconciler over every target, in the given order. An
// account failure at any stage (constructor, listing, individual edits)
// is recorded against that account and never blocks the others.
func (r *Reconciler) Sweep(ctx context.Context, targets []Target) SweepResult {
	result := SweepResult{Failures: map[string]error{}}

	for _, target := range targets {
		client, err := target.Open(ctx)
		if err != nil {
			logutil.Errorf("[%s] open account: %v", target.Name, err)
			result.Failures[target.Name] = err
			continue
		}

		limit := target.Limit
		if limit <= 0 {
			limit = DefaultRecentCount
		}
		posts, err := client.RecentPosts(ctx, limit)
		if err != nil {
			logutil.Errorf("[%s] list recent posts: %v", target.Name, err)
			result.Failures[target.Name] = err
			continue
		}

		out := r.Run(ctx, client, posts)
		for _, postErr := range out.Errors {
			logutil.Errorf("[%s] %v", target.Name, postErr)
		}
		if len(out.Errors) > 0 {
			result.Failures[target.Name] = errors.Join(out.Errors...)
		}
		result.Promoted += out.Promoted
		logutil.Infof("[%s] done, published %d post(s)", target.Name, out.Promoted)
	}

	return result
}

// SortTargets orders targets by account name for stable sweep output.
func SortTargets(targets []Target) {
	sort.Slice(targets, func(i, j int) bool { return targets[i].Name < targets[j].Name })
}
