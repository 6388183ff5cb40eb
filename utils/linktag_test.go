package utils

import (
	"net/url"
	"strings"
	"testing"
)

func TestTagURLAddsParams(t *testing.T) {
	tagger := NewLinkTagger("source", "id")

	tagged := tagger.TagURL("https://example.com/offer?x=1", 42)

	u, err := url.Parse(tagged)
	if err != nil {
		t.Fatalf("tagged URL does not parse: %v", err)
	}
	q := u.Query()
	if q.Get("source") != "bot" {
		t.Errorf("source = %q, want bot", q.Get("source"))
	}
	if q.Get("id") != "42" {
		t.Errorf("id = %q, want 42", q.Get("id"))
	}
	if q.Get("x") != "1" {
		t.Errorf("existing param x lost: %q", q.Get("x"))
	}
}

func TestTagURLIdempotent(t *testing.T) {
	tagger := NewLinkTagger("", "")

	once := tagger.TagURL("https://example.com/page", 7)
	twice := tagger.TagURL(once, 7)

	u, _ := url.Parse(twice)
	if got := u.Query()["id"]; len(got) != 1 {
		t.Fatalf("id appears %d times after double tagging, want 1", len(got))
	}
}

func TestTagURLLeavesNonHTTPAlone(t *testing.T) {
	tagger := NewLinkTagger("source", "id")

	for _, raw := range []string{"tg://resolve?domain=somebot", "mailto:a@b.c", "not a url"} {
		if got := tagger.TagURL(raw, 1); got != raw {
			t.Errorf("TagURL(%q) = %q, want unchanged", raw, got)
		}
	}
}

func TestTagTextRewritesAllLinks(t *testing.T) {
	tagger := NewLinkTagger("source", "id")

	text := "First https://a.example/x then https://b.example/y. Done."
	got := tagger.TagText(text, 9)

	if strings.Count(got, "id=9") != 2 {
		t.Fatalf("expected both links tagged, got %q", got)
	}
	if !strings.HasSuffix(got, ". Done.") {
		t.Errorf("surrounding text mangled: %q", got)
	}
}

func TestTagTextKeepsTrailingPunctuation(t *testing.T) {
	tagger := NewLinkTagger("source", "id")

	got := tagger.TagText("See https://a.example/x.", 3)

	if !strings.HasSuffix(got, ".") {
		t.Fatalf("trailing period lost: %q", got)
	}
	if strings.Contains(got, "x.?") || strings.Contains(got, "x.&") {
		t.Errorf("period absorbed into URL path: %q", got)
	}
}

func TestTagTextNoLinks(t *testing.T) {
	tagger := NewLinkTagger("source", "id")

	text := "plain message, nothing to tag"
	if got := tagger.TagText(text, 5); got != text {
		t.Errorf("text without links changed: %q", got)
	}
}
