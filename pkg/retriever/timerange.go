package retriever

import (
	"regexp"
	"strconv"
	"time"
)

// TimeRange is a pair of resolved ISO 8601 bounds. Empty strings mean the
// bound is open.
type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var relativeDateRe = regexp.MustCompile(`^NOW(?:([+-]\d+)([DWMY]))?$`)

// ResolveRelativeDate turns the <<NOW±N[DWMY]>> notation into an absolute
// RFC 3339 timestamp relative to now. Anything outside the notation is
// returned unchanged so already-absolute dates pass through.
func ResolveRelativeDate(expr string, now time.Time) string {
	if len(expr) < 4 || expr[:2] != "<<" || expr[len(expr)-2:] != ">>" {
		return expr
	}

	m := relativeDateRe.FindStringSubmatch(expr[2 : len(expr)-2])
	if m == nil {
		return expr
	}
	if m[1] == "" {
		return now.UTC().Format(time.RFC3339)
	}

	offset, err := strconv.Atoi(m[1])
	if err != nil {
		return expr
	}

	t := now
	switch m[2] {
	case "D":
		t = t.AddDate(0, 0, offset)
	case "W":
		t = t.AddDate(0, 0, offset*7)
	case "M":
		t = t.AddDate(0, offset, 0)
	case "Y":
		t = t.AddDate(offset, 0, 0)
	}
	return t.UTC().Format(time.RFC3339)
}

// ResolveTimeRange resolves both bounds of a range against the same instant,
// so "from a week ago to now" stays internally consistent.
func ResolveTimeRange(from, to string, now time.Time) TimeRange {
	return TimeRange{
		From: ResolveRelativeDate(from, now),
		To:   ResolveRelativeDate(to, now),
	}
}

// Empty reports whether neither bound is set.
func (r TimeRange) Empty() bool {
	return r.From == "" && r.To == ""
}
