package ingest

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Reader parses one file format into a title and indexable chunks.
type Reader interface {
	Parse(content []byte, filename string) (title string, chunks []Chunk, err error)
}

// ReaderTable maps file extensions (lowercase, with dot) onto readers.
// Built once at startup; unsupported extensions simply have no entry.
type ReaderTable map[string]Reader

// NewReaderTable builds the capability table of supported formats.
func NewReaderTable() ReaderTable {
	md := &markdownReader{chunker: NewMarkdownChunker()}
	txt := &textReader{}
	return ReaderTable{
		".md":   md,
		".txt":  txt,
		".html": &htmlReader{},
		".htm":  &htmlReader{},
		".csv":  &csvReader{},
		".json": &jsonReader{},
	}
}

// For returns the reader for a filename's extension, or false when the
// format is unsupported.
func (t ReaderTable) For(filename string) (Reader, bool) {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return nil, false
	}
	r, ok := t[strings.ToLower(filename[dot:])]
	return r, ok
}

type markdownReader struct {
	chunker *MarkdownChunker
}

func (r *markdownReader) Parse(content []byte, filename string) (string, []Chunk, error) {
	return r.chunker.Chunk(content, filename)
}

type textReader struct{}

func (r *textReader) Parse(content []byte, filename string) (string, []Chunk, error) {
	return titleFromFilename(filename), ChunkPlainText(string(content)), nil
}

var (
	htmlTagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlMarkupPattern = regexp.MustCompile(`<[^>]+>`)
	htmlTitlePattern  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

type htmlReader struct{}

// Parse reduces HTML to its text content. Block tags become line breaks so
// the paragraph-based chunker has boundaries to work with.
func (r *htmlReader) Parse(content []byte, filename string) (string, []Chunk, error) {
	title := titleFromFilename(filename)
	if m := htmlTitlePattern.FindSubmatch(content); m != nil {
		if t := strings.TrimSpace(string(m[1])); t != "" {
			title = t
		}
	}
	stripped := htmlTagPattern.ReplaceAll(content, nil)
	for _, tag := range []string{"</p>", "</div>", "</li>", "</h1>", "</h2>", "</h3>", "</tr>", "<br>", "<br/>"} {
		stripped = bytes.ReplaceAll(stripped, []byte(tag), []byte(tag+"\n\n"))
	}
	text := htmlMarkupPattern.ReplaceAllString(string(stripped), " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	return title, ChunkPlainText(text), nil
}

type csvReader struct{}

// Parse renders CSV rows as pipe-separated lines, one paragraph per block
// of rows, so tabular lookups keep their row context.
func (r *csvReader) Parse(content []byte, filename string) (string, []Chunk, error) {
	cr := csv.NewReader(bytes.NewReader(content))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	var b strings.Builder
	for _, rec := range records {
		b.WriteString(strings.Join(rec, " | "))
		b.WriteString("\n")
	}
	return titleFromFilename(filename), ChunkPlainText(b.String()), nil
}

type jsonReader struct{}

// Parse re-indents JSON so nested values land on their own lines and then
// chunks it as plain text. Invalid JSON falls back to the raw bytes.
func (r *jsonReader) Parse(content []byte, filename string) (string, []Chunk, error) {
	var buf bytes.Buffer
	text := string(content)
	if err := json.Indent(&buf, content, "", "  "); err == nil {
		text = buf.String()
	}
	return titleFromFilename(filename), ChunkPlainText(text), nil
}
