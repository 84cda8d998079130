// Package titletag encodes a publish deadline into the front of a post
// title, the trick used to emulate scheduled publishing on platforms
// that have none: the post stays a draft carrying its deadline in the
// title, and a periodic reconciler promotes it once the time passes.
package titletag

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tagRE matches only a leading tag in the exact zero-padded form
// [YYYY-MM-DD HH:MM]. Anything looser is treated as a plain title.
var tagRE = regexp.MustCompile(`^\[(\d{4})-(\d{2})-(\d{2}) (\d{2}):(\d{2})\]\s*`)

// Codec encodes and decodes schedule tags. All timestamps are
// interpreted in one fixed UTC offset; the deployment sets it once and
// every encode, decode, and due-comparison uses the same clock face.
type Codec struct {
	loc *time.Location
}

// New returns a codec for the given fixed UTC offset.
func New(offset time.Duration) Codec {
	name := fmt.Sprintf("UTC%+03d:%02d", int(offset.Hours()), absInt(int(offset.Minutes()))%60)
	return Codec{loc: time.FixedZone(name, int(offset/time.Second))}
}

// Location returns the fixed offset location the codec operates in.
func (c Codec) Location() *time.Location { return c.loc }

// Encode strips any existing leading tag from title and prepends the
// tag for at, rendered in the codec offset, followed by one space.
func (c Codec) Encode(title string, at time.Time) string {
	if _, rest, ok := c.Decode(title); ok {
		title = rest
	}
	return at.In(c.loc).Format("[2006-01-02 15:04] ") + strings.TrimSpace(title)
}

// Decode extracts a leading schedule tag. It returns the parsed time,
// the title with the tag and its trailing whitespace removed, and
// whether a valid tag was present. Malformed tags are never an error:
// on wrong padding, an impossible date, or an impossible time the
// original title comes back untouched with ok=false.
func (c Codec) Decode(title string) (time.Time, string, bool) {
	trimmed := strings.TrimSpace(title)
	m := tagRE.FindStringSubmatch(trimmed)
	if m == nil {
		return time.Time{}, title, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if !validDate(year, month, day) || hour > 23 || minute > 59 {
		return time.Time{}, title, false
	}
	at := time.Date(year, time.Month(month), day, hour, minute, 0, 0, c.loc)
	return at, trimmed[len(m[0]):], true
}

// validDate rejects values time.Date would silently normalize, like
// month 13 or February 30.
func validDate(year, month, day int) bool {
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Year() == year && int(d.Month()) == month && d.Day() == day
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
