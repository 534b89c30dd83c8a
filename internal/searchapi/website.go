package searchapi

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

const websiteResults = 10

var (
	ErrInvalidWebsite = apperror.Validation("A valid website URL is required")
	ErrNoWebContent   = apperror.NoContent("No content found for this URL")
)

// WebsiteText searches for pages of the site behind rawURL and composes the
// hits into a single learning text: the top result in full, then the
// snippets of the rest as additional context.
func (c *Client) WebsiteText(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidWebsite
	}

	results, err := c.Search(ctx, siteQuery(u), websiteResults)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNoWebContent
	}

	return composeWebsiteText(u.Hostname(), results), nil
}

func siteQuery(u *url.URL) string {
	var words []string
	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			words = append(words, part)
		}
	}
	return strings.TrimSpace("site:" + u.Hostname() + " " + strings.Join(words, " "))
}

func composeWebsiteText(host string, results []OrganicResult) string {
	var b strings.Builder

	main := results[0]
	source := main.Source
	if source == "" {
		source = host
	}
	fmt.Fprintf(&b, "Title: %s\n\n", main.Title)
	fmt.Fprintf(&b, "Source: %s\n", source)
	if main.Date != "" {
		fmt.Fprintf(&b, "Date: %s\n", main.Date)
	}
	fmt.Fprintf(&b, "\nContent:\n%s\n\n", main.Snippet)

	if len(results) > 1 {
		b.WriteString("Additional Context:\n\n")
		for i, r := range results[1:] {
			if r.Snippet == "" || strings.Contains(r.Snippet, "Access denied") {
				continue
			}
			fmt.Fprintf(&b, "Source %d: %s\n", i+1, r.Title)
			fmt.Fprintf(&b, "%s\n\n", r.Snippet)
		}
	}

	return strings.TrimSpace(b.String())
}
