// Package source reads the job description and the CV that feed a brief.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	DefaultFetchTimeout = 20 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; prep-brief/1.0)"

	// Extracted content shorter than this is treated as a failed guess at the
	// content region.
	minContentLength = 200
	maxBodySize      = 10 << 20
)

var (
	// ErrNoJobDescription is returned when neither a URL nor text is given.
	ErrNoJobDescription = errors.New("provide either a job description URL or text")
	// ErrAmbiguousJobDescription is returned when both a URL and text are given.
	ErrAmbiguousJobDescription = errors.New("provide a job description URL or text, not both")

	noiseSelector = "nav, script, style, footer, header, aside, form"
	blankLines    = regexp.MustCompile(`\n{2,}`)
)

// JDInput is where the job description comes from. Exactly one field is set.
type JDInput struct {
	URL  string
	Text string
}

// FetchOptions configures the HTTP fetch of a job posting.
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	// Client is used instead of a new http.Client when set.
	Client *http.Client
}

// FetchError describes a failed job posting download.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Cause      error
}

func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// JobDescription returns the job description text, downloading and
// extracting it when a URL is given.
func JobDescription(ctx context.Context, in JDInput, opts FetchOptions) (string, error) {
	rawURL := strings.TrimSpace(in.URL)
	text := strings.TrimSpace(in.Text)

	switch {
	case rawURL != "" && text != "":
		return "", ErrAmbiguousJobDescription
	case text != "":
		return text, nil
	case rawURL == "":
		return "", ErrNoJobDescription
	}

	page, err := fetch(ctx, rawURL, opts)
	if err != nil {
		return "", err
	}

	return ExtractJobText(page)
}

func fetch(ctx context.Context, rawURL string, opts FetchOptions) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", &FetchError{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultFetchTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Message: "failed to read response body", Cause: err}
	}

	return string(body), nil
}

// ExtractJobText pulls readable text out of a job posting page. It prefers the
// main or article element with page chrome removed and falls back to the
// whole page when that yields too little.
func ExtractJobText(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	region := doc.Find("main").First()
	if region.Length() == 0 {
		region = doc.Find("article").First()
	}
	if region.Length() == 0 {
		region = doc.Selection
	}

	text := collapse(nodeText(region.Nodes))
	if utf8.RuneCountInString(text) >= minContentLength {
		return text, nil
	}

	full, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse HTML: %w", err)
	}
	full.Find("script, style").Remove()

	return collapse(nodeText(full.Selection.Nodes)), nil
}

// nodeText joins every text node below nodes with newlines.
func nodeText(nodes []*html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(parts, "\n")
}

func collapse(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n"))
}
