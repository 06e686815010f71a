// Package sanitize strips disallowed markup from user text and formats it for display.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Display and storage bounds.
const (
	MaxHead        = 64
	MaxTitle       = 1024
	CaptionPreview = 50
	MaxFileLabel   = 20
)

var (
	richPolicy  = newRichPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// newRichPolicy allows simple inline emphasis and line breaks only.
func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "u", "br")
	p.AllowAttrs("target").Globally()
	return p
}

// Text removes every element outside the rich-text allow-list.
func Text(s string) string {
	return richPolicy.Sanitize(s)
}

// Plain removes all markup and returns unescaped text.
func Plain(s string) string {
	return html.UnescapeString(plainPolicy.Sanitize(s))
}

// Head bounds s to MaxHead runes and sanitizes it.
func Head(s string) string {
	return Text(clip(strings.TrimSpace(s), MaxHead))
}

// Title bounds s to MaxTitle runes and sanitizes it.
func Title(s string) string {
	return Text(clip(strings.TrimSpace(s), MaxTitle))
}

// Truncate shortens s to max runes and appends "..." when it was cut.
func Truncate(s string, max int) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return clip(s, max) + "..."
}

// FileLabel shortens a file name for display, keeping its extension: "averylongna....jpg".
func FileLabel(name string) string {
	if utf8.RuneCountInString(name) <= MaxFileLabel {
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base, ext = name[:i], name[i+1:]
	}
	allowed := MaxFileLabel - 3
	if ext != "" {
		allowed = MaxFileLabel - (utf8.RuneCountInString(ext) + 4)
	}
	if allowed < 0 {
		allowed = 0
	}
	return clip(base, allowed) + "...." + ext
}

// Tags splits a comma separated tag list into lowercase, markup-free, deduplicated
// tags in first-seen order. Blank entries are dropped.
func Tags(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		t := strings.ToLower(strings.TrimSpace(Plain(p)))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
