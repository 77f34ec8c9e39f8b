package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// VideoConnector extracts title and channel metadata for video pages via the
// public oEmbed endpoint. It never downloads media.
type VideoConnector struct{}

func NewVideoConnector() *VideoConnector { return &VideoConnector{} }

func (c *VideoConnector) Name() string { return "video" }

func (c *VideoConnector) CanHandle(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "youtu.be" || host == "vimeo.com"
}

func (c *VideoConnector) Fetch(ctx context.Context, source string) (*ArtifactDraft, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	var oembed string
	switch host {
	case "youtube.com", "youtu.be":
		oembed = "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(source)
	case "vimeo.com":
		oembed = "https://vimeo.com/api/oembed.json?url=" + url.QueryEscape(source)
	default:
		return nil, fmt.Errorf("unsupported video host %q", host)
	}

	body, err := fetchURL(ctx, oembed)
	if err != nil {
		return nil, err
	}
	var meta struct {
		Title      string `json:"title"`
		AuthorName string `json:"author_name"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode oembed: %w", err)
	}
	if meta.Title == "" {
		return nil, fmt.Errorf("video metadata has no title")
	}

	return &ArtifactDraft{
		Title:      meta.Title,
		Content:    fmt.Sprintf("Video by %s: %s", meta.AuthorName, meta.Title),
		SourceURL:  source,
		Confidence: 0.9,
		Tags:       []string{"video"},
		Metadata:   map[string]any{"author": meta.AuthorName},
	}, nil
}

// EncyclopediaConnector pulls article summaries from the Wikipedia REST API.
type EncyclopediaConnector struct{}

func NewEncyclopediaConnector() *EncyclopediaConnector { return &EncyclopediaConnector{} }

func (c *EncyclopediaConnector) Name() string { return "encyclopedia" }

func (c *EncyclopediaConnector) CanHandle(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Hostname()), "wikipedia.org") &&
		strings.HasPrefix(u.Path, "/wiki/")
}

func (c *EncyclopediaConnector) Fetch(ctx context.Context, source string) (*ArtifactDraft, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}
	title := strings.TrimPrefix(u.Path, "/wiki/")
	api := fmt.Sprintf("https://%s/api/rest_v1/page/summary/%s", u.Hostname(), title)

	body, err := fetchURL(ctx, api)
	if err != nil {
		return nil, err
	}
	var summary struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if summary.Extract == "" {
		return nil, fmt.Errorf("article %q has no summary", title)
	}

	return &ArtifactDraft{
		Title:      summary.Title,
		Content:    summary.Extract,
		SourceURL:  source,
		Confidence: 0.95,
		Tags:       []string{"encyclopedia"},
	}, nil
}

// SocialConnector records social posts as low-confidence references. The
// platforms gate their APIs, so only the URL itself is stored and the result
// is tagged unverified.
type SocialConnector struct{}

func NewSocialConnector() *SocialConnector { return &SocialConnector{} }

func (c *SocialConnector) Name() string { return "social" }

func (c *SocialConnector) CanHandle(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "twitter.com", "x.com", "bsky.app", "mastodon.social":
		return true
	}
	return false
}

func (c *SocialConnector) Fetch(ctx context.Context, source string) (*ArtifactDraft, error) {
	if _, err := checkURL(ctx, source); err != nil {
		return nil, err
	}
	u, _ := url.Parse(source)
	return &ArtifactDraft{
		Title:      fmt.Sprintf("Social post on %s", u.Hostname()),
		Content:    "Unverified social reference: " + source,
		SourceURL:  source,
		Confidence: 0.55,
		Tags:       []string{"social", "unverified"},
	}, nil
}

// WebConnector is the fallback for any other HTTP source. It strips markup
// and keeps the page title plus paragraph text.
type WebConnector struct{}

func NewWebConnector() *WebConnector { return &WebConnector{} }

func (c *WebConnector) Name() string { return "web" }

func (c *WebConnector) CanHandle(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

var (
	titlePattern     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	paragraphPattern = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	tagPattern       = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

func (c *WebConnector) Fetch(ctx context.Context, source string) (*ArtifactDraft, error) {
	body, err := fetchURL(ctx, source)
	if err != nil {
		return nil, err
	}

	title := source
	if m := titlePattern.FindSubmatch(body); m != nil {
		title = cleanText(string(m[1]))
	}

	var paragraphs []string
	total := 0
	for _, m := range paragraphPattern.FindAllSubmatch(body, -1) {
		text := cleanText(string(m[1]))
		if len(text) < 40 {
			continue
		}
		paragraphs = append(paragraphs, text)
		total += len(text)
		if total > 4000 {
			break
		}
	}
	if len(paragraphs) == 0 {
		return nil, fmt.Errorf("no extractable text at %s", source)
	}

	return &ArtifactDraft{
		Title:      title,
		Content:    strings.Join(paragraphs, "\n\n"),
		SourceURL:  source,
		Confidence: 0.7,
		Tags:       []string{"web"},
	}, nil
}

func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ").Replace(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}
