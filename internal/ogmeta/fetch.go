package ogmeta

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// mirrored lists the tags copied into the preview document, in output order
var mirrored = []string{
	"og:title",
	"og:description",
	"og:image",
	"og:url",
	"og:type",
	"og:site_name",
	"og:video",
	"og:video:url",
	"og:video:secure_url",
	"og:video:type",
	"og:video:width",
	"og:video:height",
	"twitter:card",
	"twitter:site",
	"twitter:title",
	"twitter:description",
	"twitter:image",
	"twitter:player",
	"twitter:player:width",
	"twitter:player:height",
}

// Tag is one meta element. Attr is "property" or "name", whichever the
// destination used.
type Tag struct {
	Attr    string
	Key     string
	Content string
}

// Meta is what a preview document carries
type Meta struct {
	Title string
	Tags  []Tag
}

// Fetcher downloads destination pages with a bounded time and size
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher creates a fetcher; timeout bounds the whole request
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = 512 << 10
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch downloads target and extracts its preview tags
func (f *Fetcher) Fetch(ctx context.Context, target string) (*Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch destination: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("destination returned %d", resp.StatusCode)
	}

	meta := Parse(io.LimitReader(resp.Body, f.maxBytes))
	return &meta, nil
}

// Parse extracts mirrored tags from an HTML document. The property form of
// a tag wins over the name form. Without og:title the <title> text is
// promoted to one.
func Parse(r io.Reader) Meta {
	byProperty := map[string]string{}
	byName := map[string]string{}
	var title string

	z := html.NewTokenizer(r)
	inTitle := false
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.DataAtom {
			case atom.Meta:
				collectMeta(tok, byProperty, byName)
			case atom.Title:
				inTitle = tt == html.StartTagToken && title == ""
			}
		case html.TextToken:
			if inTitle {
				title = strings.TrimSpace(string(z.Text()))
				inTitle = false
			}
		case html.EndTagToken:
			inTitle = false
		}
	}

	var meta Meta
	for _, key := range mirrored {
		if v, ok := byProperty[key]; ok {
			meta.Tags = append(meta.Tags, Tag{Attr: "property", Key: key, Content: v})
			continue
		}
		if v, ok := byName[key]; ok {
			meta.Tags = append(meta.Tags, Tag{Attr: "name", Key: key, Content: v})
		}
	}

	if v, ok := byProperty["og:title"]; ok {
		meta.Title = v
	} else if title != "" {
		meta.Title = title
		if _, ok := byName["og:title"]; !ok {
			meta.Tags = append([]Tag{{Attr: "property", Key: "og:title", Content: title}}, meta.Tags...)
		}
	}
	return meta
}

func collectMeta(tok html.Token, byProperty, byName map[string]string) {
	var property, name, content string
	hasContent := false
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "property":
			property = strings.ToLower(strings.TrimSpace(a.Val))
		case "name":
			name = strings.ToLower(strings.TrimSpace(a.Val))
		case "content":
			content = a.Val
			hasContent = true
		}
	}
	if !hasContent || content == "" {
		return
	}
	if property != "" {
		if _, seen := byProperty[property]; !seen {
			byProperty[property] = content
		}
	}
	if name != "" {
		if _, seen := byName[name]; !seen {
			byName[name] = content
		}
	}
}
