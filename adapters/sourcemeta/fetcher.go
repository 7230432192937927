package sourcemeta

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"openach/internal/errors"
	"openach/models"
	"openach/ports"
)

// maxBodyBytes bounds how much of a page is read when looking for metadata.
// Titles and descriptions live in <head>, so the first chunk is enough.
const maxBodyBytes = 512 * 1024

const fetchTimeout = 10 * time.Second

// FetcherImpl retrieves page metadata over HTTP
type FetcherImpl struct {
	client *http.Client
}

// NewFetcher creates a SourceMetadataFetcher with a bounded timeout
func NewFetcher() ports.SourceMetadataFetcher {
	return &FetcherImpl{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch downloads the page at url and extracts its title and description,
// preferring Open Graph tags over the document defaults.
func (f *FetcherImpl) Fetch(ctx context.Context, url string) (*ports.SourceMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.InvalidInput("invalid source URL")
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch source page")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.InvalidInput("source page returned a non-OK status")
	}

	meta, err := Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// Parse extracts metadata from an HTML document
func Parse(r io.Reader) (*ports.SourceMetadata, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse source page")
	}

	var title, ogTitle, description, ogDescription string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil {
					title = n.FirstChild.Data
				}
			case "meta":
				name, property, content := metaAttrs(n)
				switch {
				case property == "og:title":
					ogTitle = content
				case property == "og:description":
					ogDescription = content
				case name == "description":
					description = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if ogTitle != "" {
		title = ogTitle
	}
	if ogDescription != "" {
		description = ogDescription
	}

	return &ports.SourceMetadata{
		Title:       truncate(clean(title), models.SourceTitleMaxLength),
		Description: truncate(clean(description), models.SourceDescriptionMaxLength),
	}, nil
}

func metaAttrs(n *html.Node) (name, property, content string) {
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "name":
			name = strings.ToLower(attr.Val)
		case "property":
			property = strings.ToLower(attr.Val)
		case "content":
			content = attr.Val
		}
	}
	return name, property, content
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
