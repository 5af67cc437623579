package linkfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"skimmer/internal/textutil"
)

const (
	defaultTimeout          = 10 * time.Second
	defaultMaxContentLength = 8000
	defaultUserAgent        = "skimmer/1.0"
)

// ErrUnsupportedContent marks URLs whose payload carries no extractable text:
// images, videos, galleries, and non-HTML documents.
var ErrUnsupportedContent = errors.New("unsupported content")

var mediaHosts = map[string]struct{}{
	"i.redd.it":   {},
	"v.redd.it":   {},
	"i.imgur.com": {},
}

var mediaExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".svg",
	".mp4", ".webm", ".mov", ".avi", ".mkv",
}

// Config tunes the fetcher.
type Config struct {
	TimeoutSeconds   int
	MaxContentLength int
	UserAgent        string
}

// Fetcher downloads linked pages and reduces them to plain article text.
type Fetcher struct {
	client           *http.Client
	maxContentLength int
	userAgent        string
}

// Option customizes the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// NewFetcher constructs a fetcher from config.
func NewFetcher(cfg Config, opts ...Option) *Fetcher {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	fetcher := &Fetcher{
		client:           &http.Client{Timeout: timeout},
		maxContentLength: cfg.MaxContentLength,
		userAgent:        strings.TrimSpace(cfg.UserAgent),
	}
	if fetcher.maxContentLength <= 0 {
		fetcher.maxContentLength = defaultMaxContentLength
	}
	if fetcher.userAgent == "" {
		fetcher.userAgent = defaultUserAgent
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// IsMediaURL reports whether the URL points at an image, video, or gallery
// rather than a readable page.
func IsMediaURL(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := mediaHosts[host]; ok {
		return true
	}
	path := strings.ToLower(parsed.Path)
	if strings.Contains(path, "/gallery/") {
		return true
	}
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Fetch downloads the page at rawURL and returns its readable text, truncated
// to the configured length. Media URLs and non-HTML payloads return
// ErrUnsupportedContent.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("url required")
	}
	if IsMediaURL(rawURL) {
		return "", fmt.Errorf("%w: media url", ErrUnsupportedContent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page returned %s", resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") && !strings.Contains(contentType, "text/plain") {
		return "", fmt.Errorf("%w: content type %s", ErrUnsupportedContent, contentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	return f.extractText(doc), nil
}

func (f *Fetcher) extractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, iframe, noscript, form").Remove()

	// Prefer the article body when the page marks one up.
	var text string
	for _, selector := range []string{"article", "main", "body"} {
		selection := doc.Find(selector).First()
		if selection.Length() == 0 {
			continue
		}
		text = strings.TrimSpace(selection.Text())
		if text != "" {
			break
		}
	}

	text = textutil.CollapseWhitespace(text)
	return textutil.TruncateRunes(text, f.maxContentLength)
}
