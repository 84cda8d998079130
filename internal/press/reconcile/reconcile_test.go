package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/titletag"
)

var jst = titletag.New(9 * time.Hour)

func fixedNow(value string) func() time.Time {
	at, err := time.ParseInLocation("2006-01-02 15:04", value, jst.Location())
	if err != nil {
		panic(err)
	}
	return func() time.Time { return at }
}

type edit struct {
	id     string
	title  string
	body   string
	status press.Status
}

type fakeEditor struct {
	edits   []edit
	failIDs map[string]bool
}

func (f *fakeEditor) EditPost(ctx context.Context, id, title, body string, status press.Status) error {
	if f.failIDs[id] {
		return errors.New("connection reset")
	}
	f.edits = append(f.edits, edit{id: id, title: title, body: body, status: status})
	return nil
}

func TestRunPromotesDuePost(t *testing.T) {
	editor := &fakeEditor{}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "42", Title: "[2024-06-01 09:59] Hello", Body: "<p>body</p>", Status: press.StatusDraft},
	})

	if out.Promoted != 1 || len(out.Errors) != 0 {
		t.Fatalf("promoted=%d errors=%v, want one clean promotion", out.Promoted, out.Errors)
	}
	if len(editor.edits) != 1 {
		t.Fatalf("edits %v, want exactly one", editor.edits)
	}
	got := editor.edits[0]
	if got.id != "42" || got.title != "Hello" || got.body != "<p>body</p>" || got.status != press.StatusPublish {
		t.Fatalf("edit %+v, want cleaned title, untouched body, published status", got)
	}
}

func TestRunBoundaryIsInclusive(t *testing.T) {
	editor := &fakeEditor{}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "1", Title: "[2024-06-01 10:00] Hello"},
	})

	if out.Promoted != 1 {
		t.Fatalf("promoted=%d, want a post scheduled for exactly now to be due", out.Promoted)
	}
}

func TestRunSubMinuteNowStillDueAtBoundary(t *testing.T) {
	// now carries seconds; truncation to the minute keeps the boundary inclusive.
	at := time.Date(2024, 6, 1, 10, 0, 42, 0, jst.Location())
	editor := &fakeEditor{}
	rec := New(jst, func() time.Time { return at })

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "1", Title: "[2024-06-01 10:00] Hello"},
	})

	if out.Promoted != 1 {
		t.Fatalf("promoted=%d, want 1", out.Promoted)
	}
}

func TestRunLeavesFuturePostAlone(t *testing.T) {
	editor := &fakeEditor{}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "1", Title: "[2024-06-01 10:01] Hello"},
	})

	if out.Promoted != 0 || len(editor.edits) != 0 {
		t.Fatalf("promoted=%d edits=%v, want the future post untouched", out.Promoted, editor.edits)
	}
}

func TestRunSkipsUntaggedAndMalformed(t *testing.T) {
	editor := &fakeEditor{}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "1", Title: "Plain published post", Status: press.StatusPublish},
		{ID: "2", Title: "Plain draft", Status: press.StatusDraft},
		{ID: "3", Title: "[2024-1-1 09:00] malformed tag", Status: press.StatusDraft},
	})

	if out.Promoted != 0 || len(out.Errors) != 0 || len(editor.edits) != 0 {
		t.Fatalf("out=%+v edits=%v, want everything skipped", out, editor.edits)
	}
}

func TestRunEmptyRemainderKeepsOriginalTitle(t *testing.T) {
	editor := &fakeEditor{}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "1", Title: "[2024-06-01 09:00]"},
	})

	if len(editor.edits) != 1 {
		t.Fatalf("edits %v, want one", editor.edits)
	}
	if editor.edits[0].title != "[2024-06-01 09:00]" {
		t.Fatalf("title %q, want the original tagged title instead of an empty one", editor.edits[0].title)
	}
}

func TestRunOneFailureDoesNotStopTheBatch(t *testing.T) {
	editor := &fakeEditor{failIDs: map[string]bool{"a": true}}
	rec := New(jst, fixedNow("2024-06-01 10:00"))

	out := rec.Run(context.Background(), editor, []press.PostRecord{
		{ID: "a", Title: "[2024-06-01 09:00] First"},
		{ID: "b", Title: "[2024-06-01 09:30] Second"},
	})

	if out.Promoted != 1 {
		t.Fatalf("promoted=%d, want post b still promoted after a's failure", out.Promoted)
	}
	if len(out.Errors) != 1 {
		t.Fatalf("errors %v, want exactly one", out.Errors)
	}
	var postErr PostError
	if !errors.As(out.Errors[0], &postErr) || postErr.ID != "a" {
		t.Fatalf("error %v, want a PostError for post a", out.Errors[0])
	}
	if len(editor.edits) != 1 || editor.edits[0].id != "b" {
		t.Fatalf("edits %v, want only b edited", editor.edits)
	}
}

type fakePublisher struct {
	fakeEditor
	posts   []press.PostRecord
	listErr error
}

func (f *fakePublisher) Name() string                     { return "fake" }
func (f *fakePublisher) Capabilities() press.Capabilities { return press.Capabilities{} }

func (f *fakePublisher) CreatePost(ctx context.Context, draft press.Draft) (press.Result, error) {
	return press.Result{}, errors.New("not used")
}
func (f *fakePublisher) UploadAsset(ctx context.Context, data []byte, filename, mime string) (string, error) {
	return "", errors.New("not used")
}
func (f *fakePublisher) RecentPosts(ctx context.Context, limit int) ([]press.PostRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.posts, nil
}

func TestSweepIsolatesAccountFailures(t *testing.T) {
	healthy := &fakePublisher{posts: []press.PostRecord{
		{ID: "1", Title: "[2024-06-01 09:00] Due"},
	}}
	down := &fakePublisher{listErr: errors.New("connection refused")}

	rec := New(jst, fixedNow("2024-06-01 10:00"))
	res := rec.Sweep(context.Background(), []Target{
		{Name: "broken", Open: func(ctx context.Context) (press.Publisher, error) { return down, nil }},
		{Name: "healthy", Open: func(ctx context.Context) (press.Publisher, error) { return healthy, nil }},
	})

	if res.Promoted != 1 {
		t.Fatalf("promoted=%d, want the healthy account still swept", res.Promoted)
	}
	if len(res.Failures) != 1 || res.Failures["broken"] == nil {
		t.Fatalf("failures %v, want only the broken account recorded", res.Failures)
	}
}

func TestSweepRecordsOpenFailure(t *testing.T) {
	rec := New(jst, fixedNow("2024-06-01 10:00"))
	res := rec.Sweep(context.Background(), []Target{
		{Name: "misconfigured", Open: func(ctx context.Context) (press.Publisher, error) {
			return nil, press.MissingConfigError{Provider: "wordpress", Fields: []string{"url"}}
		}},
	})

	if res.Promoted != 0 {
		t.Fatalf("promoted=%d, want 0", res.Promoted)
	}
	err := res.Failures["misconfigured"]
	var missing press.MissingConfigError
	if !errors.As(err, &missing) {
		t.Fatalf("failure %v, want the MissingConfigError surfaced", err)
	}
}

func TestSweepRecordsPerPostErrors(t *testing.T) {
	pub := &fakePublisher{posts: []press.PostRecord{
		{ID: "a", Title: "[2024-06-01 09:00] First"},
		{ID: "b", Title: "[2024-06-01 09:30] Second"},
	}}
	pub.failIDs = map[string]bool{"a": true}

	rec := New(jst, fixedNow("2024-06-01 10:00"))
	res := rec.Sweep(context.Background(), []Target{
		{Name: "flaky", Open: func(ctx context.Context) (press.Publisher, error) { return pub, nil }},
	})

	if res.Promoted != 1 {
		t.Fatalf("promoted=%d, want 1", res.Promoted)
	}
	if res.Failures["flaky"] == nil {
		t.Fatalf("want the per-post failure recorded against the account")
	}
}

func TestSortTargets(t *testing.T) {
	targets := []Target{{Name: "zeta"}, {Name: "alpha"}, {Name: "mid"}}
	SortTargets(targets)
	if targets[0].Name != "alpha" || targets[1].Name != "mid" || targets[2].Name != "zeta" {
		t.Fatalf("order %v, want alphabetical", []string{targets[0].Name, targets[1].Name, targets[2].Name})
	}
}
