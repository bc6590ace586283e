package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"https://Example.COM/Docs/":         "https://example.com/Docs",
		"https://example.com:443/page":      "https://example.com/page",
		"http://example.com:80/":            "http://example.com/",
		"https://example.com/page#section":  "https://example.com/page",
		"https://example.com":               "https://example.com",
		"https://example.com/a/b/?q=1":      "https://example.com/a/b?q=1",
	}

	for input, want := range cases {
		got, err := normalizeURL(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestURLAllowed(t *testing.T) {
	domains := []string{"example.com"}

	assert.True(t, urlAllowed("https://example.com/docs/intro", nil, domains))
	assert.True(t, urlAllowed("https://www.example.com/about", nil, domains))
	assert.True(t, urlAllowed("https://blog.example.com/post", nil, domains))

	assert.False(t, urlAllowed("https://other.com/docs", nil, domains))
	assert.False(t, urlAllowed("ftp://example.com/file", nil, domains))
	assert.False(t, urlAllowed("https://example.com/logo.png", nil, domains))
	assert.False(t, urlAllowed("https://example.com/wp-admin/edit", nil, domains))
	assert.False(t, urlAllowed("https://example.com/feed/", nil, domains))

	paths := []string{"/docs"}
	assert.True(t, urlAllowed("https://example.com/docs/intro", paths, domains))
	assert.False(t, urlAllowed("https://example.com/blog/post", paths, domains))
}
