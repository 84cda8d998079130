// Package intent translates the author's publish decision into the
// concrete status and fields a platform call should carry.
package intent

import (
	"time"

	"github.com/presslane/pressgang/internal/press"
	"github.com/presslane/pressgang/internal/press/titletag"
)

// Intent is the raw decision from the command line: an explicit
// publish-now toggle and an optional schedule, given as wall-clock time
// in the deployment's fixed offset.
type Intent struct {
	PublishNow bool
	ScheduleAt time.Time // zero means no schedule
}

// Resolved is what actually goes over the wire.
type Resolved struct {
	Status    press.Status
	Title     string
	PublishAt time.Time // absolute instant; zero unless natively scheduled
}

// Resolve computes the effective publish intent for one platform.
//
// Without a schedule the status follows the toggle. With a schedule the
// outcome depends on the platform: native schedulers get a future
// status and the absolute instant; everything else gets an unconditional
// draft with the deadline encoded into the title, to be promoted later
// by the reconciler. The schedule always wins over the publish-now
// toggle, so a pseudo-scheduled post never goes live early.
func Resolve(in Intent, title string, caps press.Capabilities, codec titletag.Codec) Resolved {
	if in.ScheduleAt.IsZero() {
		status := press.StatusDraft
		if in.PublishNow {
			status = press.StatusPublish
		}
		return Resolved{Status: status, Title: title}
	}

	at := wallClockIn(in.ScheduleAt, codec.Location())

	if caps.NativeScheduling {
		return Resolved{
			Status:    press.StatusFuture,
			Title:     title,
			PublishAt: at.UTC(),
		}
	}

	return Resolved{
		Status: press.StatusDraft,
		Title:  codec.Encode(title, at),
	}
}

// wallClockIn re-anchors the clock-face reading of t into loc, so a
// schedule entered as naive local time is interpreted in the fixed
// offset no matter how the caller constructed it.
func wallClockIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
