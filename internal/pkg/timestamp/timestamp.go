// Package timestamp handles the HH:MM:SS[.mmm] time markers used by transcripts and citations.
package timestamp

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	strictRe   = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(?:\.\d{3})?$`)
	citationRe = regexp.MustCompile(`\[(\d{2}:\d{2}:\d{2}(?:\.\d{3})?(?:\s*-\s*\d{2}:\d{2}:\d{2}(?:\.\d{3})?)?)\]`)
)

// Citation is a bracketed marker found in model output.
type Citation struct {
	Raw   string // text between the brackets
	Start string // Raw reduced to its start time
}

func IsValid(ts string) bool {
	return strictRe.MatchString(ts)
}

// Normalize reduces a "start - end" range to its start and validates the result.
func Normalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if IsValid(raw) {
		return raw, true
	}
	if !strings.Contains(raw, "-") {
		return "", false
	}
	start := strings.TrimSpace(strings.SplitN(raw, "-", 2)[0])
	if !IsValid(start) {
		return "", false
	}
	return start, true
}

// Validate keeps only candidates that normalize to a strict timestamp, in input order.
func Validate(raws []string) []string {
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if ts, ok := Normalize(raw); ok {
			out = append(out, ts)
		}
	}
	return out
}

func FindCitations(text string) []Citation {
	matches := citationRe.FindAllStringSubmatch(text, -1)
	out := make([]Citation, 0, len(matches))
	for _, m := range matches {
		c := Citation{Raw: m[1], Start: m[1]}
		if idx := strings.Index(m[1], "-"); idx >= 0 {
			c.Start = strings.TrimSpace(m[1][:idx])
		}
		out = append(out, c)
	}
	return out
}

// ReplaceCitations rewrites every bracketed citation in text with fn's output.
func ReplaceCitations(text string, fn func(c Citation, matched string) string) string {
	return citationRe.ReplaceAllStringFunc(text, func(matched string) string {
		inner := matched[1 : len(matched)-1]
		c := Citation{Raw: inner, Start: inner}
		if idx := strings.Index(inner, "-"); idx >= 0 {
			c.Start = strings.TrimSpace(inner[:idx])
		}
		return fn(c, matched)
	})
}

// Seconds converts HH:MM:SS(.mmm) or MM:SS into whole seconds, flooring any fraction.
func Seconds(ts string) int {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	switch len(parts) {
	case 3:
		h, _ := strconv.Atoi(parts[0])
		m, _ := strconv.Atoi(parts[1])
		return h*3600 + m*60 + floorSeconds(parts[2])
	case 2:
		m, _ := strconv.Atoi(parts[0])
		return m*60 + floorSeconds(parts[1])
	}
	return 0
}

func floorSeconds(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(math.Floor(f))
}

// Within reports whether ts lies in [start, end]. Zero-padded timestamps
// order lexicographically the same way they order in time.
func Within(ts, start, end string) bool {
	return start <= ts && ts <= end
}
