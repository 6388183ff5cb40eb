package utils

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// urlPattern matches URL-shaped substrings in free text.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// LinkTagger appends per-user tracking parameters to outgoing links.
// Tagging is best-effort and pure: anything that fails to parse is
// returned unchanged.
type LinkTagger struct {
	sourceParam string
	idParam     string
}

// NewLinkTagger builds a tagger with the given parameter names, falling
// back to "source" and "id".
func NewLinkTagger(sourceParam, idParam string) *LinkTagger {
	if sourceParam == "" {
		sourceParam = "source"
	}
	if idParam == "" {
		idParam = "id"
	}
	return &LinkTagger{sourceParam: sourceParam, idParam: idParam}
}

// TagURL rewrites an http/https URL with the tracking parameters set,
// preserving any existing query. Set (not Add) keeps tagging idempotent.
func (t *LinkTagger) TagURL(raw string, userID int64) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return raw
	}
	q := u.Query()
	q.Set(t.sourceParam, "bot")
	q.Set(t.idParam, strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String()
}

// TagText rewrites every URL-shaped substring in place, leaving the rest
// of the text untouched.
func (t *LinkTagger) TagText(text string, userID int64) string {
	return urlPattern.ReplaceAllStringFunc(text, func(match string) string {
		// Trailing sentence punctuation is not part of the link.
		trimmed := strings.TrimRight(match, ".,;:!?)")
		suffix := match[len(trimmed):]
		return t.TagURL(trimmed, userID) + suffix
	})
}
