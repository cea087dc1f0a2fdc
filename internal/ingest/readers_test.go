package ingest

import (
	"strings"
	"testing"
)

func TestReaderTable_For(t *testing.T) {
	table := NewReaderTable()
	for _, name := range []string{"a.md", "b.TXT", "c.html", "d.htm", "e.csv", "f.json"} {
		if _, ok := table.For(name); !ok {
			t.Errorf("For(%q) = false, want supported", name)
		}
	}
	for _, name := range []string{"x.exe", "noext", "y.pdf"} {
		if _, ok := table.For(name); ok {
			t.Errorf("For(%q) = true, want unsupported", name)
		}
	}
}

func TestHTMLReader(t *testing.T) {
	content := []byte(`<html><head><title>Enrollment FAQ</title>
<style>body { color: red; }</style></head>
<body><h1>Enrollment</h1><p>Submit form CMS-855 &amp; wait 30 days.</p>
<script>alert("x")</script></body></html>`)
	reader := &htmlReader{}
	title, chunks, err := reader.Parse(content, "faq.html")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if title != "Enrollment FAQ" {
		t.Errorf("title = %q, want Enrollment FAQ", title)
	}
	joined := ""
	for _, c := range chunks {
		joined += c.Text
	}
	if !strings.Contains(joined, "CMS-855 & wait 30 days") {
		t.Errorf("text missing unescaped content: %q", joined)
	}
	if strings.Contains(joined, "alert") || strings.Contains(joined, "color: red") {
		t.Errorf("script/style leaked into text: %q", joined)
	}
}

func TestCSVReader(t *testing.T) {
	content := []byte("code,description\n99213,Office visit\n99214,Extended visit\n")
	reader := &csvReader{}
	_, chunks, err := reader.Parse(content, "codes.csv")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	joined := ""
	for _, c := range chunks {
		joined += c.Text
	}
	if !strings.Contains(joined, "99213 | Office visit") {
		t.Errorf("rows not pipe-joined: %q", joined)
	}
}

func TestJSONReader_InvalidFallsBackToRaw(t *testing.T) {
	reader := &jsonReader{}
	_, chunks, err := reader.Parse([]byte("not json at all but still worth indexing as text content"), "data.json")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("Parse() returned no chunks for raw fallback")
	}
	if !strings.Contains(chunks[0].Text, "worth indexing") {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}
