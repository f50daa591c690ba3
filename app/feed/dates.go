package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Named zones seen in the wild. time.Parse only resolves abbreviations that
// match the local zone, everything else would silently become UTC+0.
var zoneOffsets = map[string]string{
	"UT":   "+0000",
	"UTC":  "+0000",
	"GMT":  "+0000",
	"Z":    "+0000",
	"EST":  "-0500",
	"EDT":  "-0400",
	"CST":  "-0600",
	"CDT":  "-0500",
	"MST":  "-0700",
	"MDT":  "-0600",
	"PST":  "-0800",
	"PDT":  "-0700",
	"AKST": "-0900",
	"AKDT": "-0800",
	"HST":  "-1000",
	"WET":  "+0000",
	"WEST": "+0100",
	"BST":  "+0100",
	"CET":  "+0100",
	"CEST": "+0200",
	"MET":  "+0100",
	"MEST": "+0200",
	"EET":  "+0200",
	"EEST": "+0300",
	"MSK":  "+0300",
	"JST":  "+0900",
	"KST":  "+0900",
	"AEST": "+1000",
	"AEDT": "+1100",
	"NZST": "+1200",
	"NZDT": "+1300",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, 2 January 2006 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"Mon 02 Jan 2006 15:04:05 -0700",
	"Monday, 02-Jan-06 15:04:05 -0700",
	"Monday, 2 January 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006",
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.UnixDate,
	time.RubyDate,
	time.ANSIC,
}

// ParseDate normalizes a date string from any of the supported formats to
// an instant in UTC. Naive timestamps are interpreted as UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	value = replaceNamedZone(value)

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			if unresolvedZone(t) {
				return time.Time{}, false
			}
			return t.UTC(), true
		}
	}

	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil || unresolvedZone(t) {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// unresolvedZone reports whether t carries a zone abbreviation that was
// neither in zoneOffsets nor the local zone. time.Parse fabricates those
// with a zero offset, which would shift the instant.
func unresolvedZone(t time.Time) bool {
	if loc := t.Location(); loc == time.UTC || loc == time.Local {
		return false
	}
	name, offset := t.Zone()
	return offset == 0 && name != ""
}

func parseDatePtr(value string) *time.Time {
	t, ok := ParseDate(value)
	if !ok {
		return nil
	}
	return &t
}

// replaceNamedZone rewrites a trailing zone abbreviation into a numeric
// offset. ISO 8601 "Z" suffixes are left to the RFC 3339 layouts.
func replaceNamedZone(value string) string {
	idx := strings.LastIndexByte(value, ' ')
	if idx < 0 {
		return value
	}

	zone := strings.Trim(value[idx+1:], "()")
	offset, ok := zoneOffsets[strings.ToUpper(zone)]
	if !ok {
		return value
	}
	return value[:idx+1] + offset
}
