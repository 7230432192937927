package sourcemeta

import (
	"strings"
	"testing"
)

func TestParsePrefersOpenGraph(t *testing.T) {
	page := `<html><head>
		<title>Fallback Title</title>
		<meta name="description" content="Fallback description.">
		<meta property="og:title" content="OG Title">
		<meta property="og:description" content="OG description.">
	</head><body></body></html>`

	meta, err := Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if meta.Title != "OG Title" {
		t.Errorf("expected OG title, got %q", meta.Title)
	}
	if meta.Description != "OG description." {
		t.Errorf("expected OG description, got %q", meta.Description)
	}
}

func TestParseFallsBackToDocumentTags(t *testing.T) {
	page := `<html><head>
		<title>  Document
		Title  </title>
		<meta name="description" content="Document description.">
	</head><body></body></html>`

	meta, err := Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if meta.Title != "Document Title" {
		t.Errorf("expected whitespace-collapsed title, got %q", meta.Title)
	}
	if meta.Description != "Document description." {
		t.Errorf("unexpected description %q", meta.Description)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	meta, err := Parse(strings.NewReader("<html></html>"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if meta.Title != "" || meta.Description != "" {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
}

func TestParseTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("a", 1000)
	page := `<html><head><title>` + long + `</title></head></html>`

	meta, err := Parse(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(meta.Title) >= 1000 {
		t.Errorf("expected truncated title, got length %d", len(meta.Title))
	}
}
