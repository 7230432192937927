package ports

import "context"

// SourceMetadata holds the page metadata extracted from an evidence source
// URL
type SourceMetadata struct {
	Title       string
	Description string
}

// SourceMetadataFetcher retrieves page metadata for evidence source URLs so
// that analysts do not have to copy titles by hand.
type SourceMetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*SourceMetadata, error)
}
