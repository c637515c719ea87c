package ogmeta

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCrawler(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"Twitterbot/1.0", true},
		{"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", true},
		{"Mozilla/5.0 (compatible; Discordbot/2.0; +https://discordapp.com)", true},
		{"WhatsApp/2.23.20.0", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsCrawler(tt.ua), tt.ua)
	}
}

const page = `<!doctype html>
<html><head>
<title>Fallback Title</title>
<meta property="og:title" content="Big Sale">
<meta property="og:image" content="https://shop.example/img.png" />
<meta name="twitter:card" content="summary_large_image">
<meta name="og:description" content="name form">
<meta property="og:description" content="property form">
<meta name="description" content="ignored">
</head><body>hi</body></html>`

func TestParsePrefersPropertyForm(t *testing.T) {
	meta := Parse(strings.NewReader(page))

	assert.Equal(t, "Big Sale", meta.Title)
	assert.Equal(t, []Tag{
		{Attr: "property", Key: "og:title", Content: "Big Sale"},
		{Attr: "property", Key: "og:description", Content: "property form"},
		{Attr: "property", Key: "og:image", Content: "https://shop.example/img.png"},
		{Attr: "name", Key: "twitter:card", Content: "summary_large_image"},
	}, meta.Tags)
}

func TestParseFallsBackToTitle(t *testing.T) {
	meta := Parse(strings.NewReader(`<html><head><title> Plain page </title></head></html>`))

	assert.Equal(t, "Plain page", meta.Title)
	require.Len(t, meta.Tags, 1)
	assert.Equal(t, Tag{Attr: "property", Key: "og:title", Content: "Plain page"}, meta.Tags[0])
}

func TestFetcher(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(time.Second, "test-bot/1.0", 1<<20)
	meta, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "test-bot/1.0", gotUA)
	assert.Equal(t, "Big Sale", meta.Title)
}

func TestFetcherFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	missing := httptest.NewServer(http.NotFoundHandler())
	defer missing.Close()

	f := NewFetcher(50*time.Millisecond, "", 0)
	_, err := f.Fetch(context.Background(), slow.URL)
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), missing.URL)
	assert.Error(t, err)
}

func TestRenderEscapes(t *testing.T) {
	var buf bytes.Buffer
	meta := &Meta{Title: `<script>x</script>`, Tags: []Tag{{Attr: "name", Key: "twitter:card", Content: `"quoted"`}}}
	require.NoError(t, Render(&buf, "https://shop.example/sale?a=1&b=2", "promo", meta))

	out := buf.String()
	assert.Contains(t, out, `http-equiv="refresh"`)
	assert.Contains(t, out, `https://shop.example/sale?a=1&amp;b=2`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `<meta name="twitter:card" content="&#34;quoted&#34;">`)
}

func TestRenderWithoutMeta(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "https://example.com", "promo", nil))
	assert.Contains(t, buf.String(), "<title>promo</title>")
}
