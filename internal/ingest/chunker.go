package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	minChunkSize = 50
	maxChunkSize = 700 // Max runes per chunk (targets ~450 tokens for 512-token embedding model)
)

// Chunk is one indexable piece of a document.
type Chunk struct {
	Index int
	Text  string
}

// MarkdownChunker chunks markdown content along its heading structure
// using goldmark AST parsing.
type MarkdownChunker struct {
	parser goldmark.Markdown
}

// NewMarkdownChunker creates a new markdown chunker.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Chunk parses markdown and returns the document title and its chunks.
// Sections are bounded by headings, then merged or split to fit the size
// constraints.
func (c *MarkdownChunker) Chunk(content []byte, filename string) (title string, chunks []Chunk, err error) {
	if len(content) == 0 {
		return titleFromFilename(filename), []Chunk{}, nil
	}

	reader := text.NewReader(content)
	doc := c.parser.Parser().Parse(reader)

	title = extractTitle(doc, content, filename)
	sections := collectSections(doc, content)
	if len(sections) == 0 {
		sections = []string{string(content)}
	}

	chunks = sizeConstrained(sections)
	return title, chunks, nil
}

// extractTitle prefers the first H1, then the first H2, then the filename.
func extractTitle(doc ast.Node, content []byte, filename string) string {
	var firstH1, firstH2 string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if heading, ok := n.(*ast.Heading); ok {
			headingText := extractTextFromNode(heading, content)
			if heading.Level == 1 && firstH1 == "" {
				firstH1 = headingText
			} else if heading.Level == 2 && firstH2 == "" && firstH1 == "" {
				firstH2 = headingText
			}
			if firstH1 != "" {
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	if firstH1 != "" {
		return firstH1
	}
	if firstH2 != "" {
		return firstH2
	}
	return titleFromFilename(filename)
}

func titleFromFilename(filename string) string {
	name := filename
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	for i, word := range words {
		runes := []rune(word)
		if len(runes) > 0 {
			runes[0] = unicode.ToUpper(runes[0])
			words[i] = string(runes)
		}
	}
	return strings.Join(words, " ")
}

// collectSections walks the AST and gathers text section by section, with
// each heading starting a new section prefixed by its text.
func collectSections(doc ast.Node, content []byte) []string {
	var sections []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			flush()
			current.WriteString(extractTextFromNode(node, content))
			current.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			current.Write(node.Segment.Value(content))
		case *ast.String:
			current.Write(node.Value)
		case *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				current.Write(seg.Value(content))
			}
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				current.Write(seg.Value(content))
			}
		case *ast.Paragraph, *ast.List, *ast.ListItem:
			if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n") {
				current.WriteString("\n")
			}
		default:
			kindName := n.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n") {
					current.WriteString("\n")
				}
				current.WriteString(extractTableRowText(n, content))
				current.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
		}
		return ast.WalkContinue, nil
	})
	flush()
	return sections
}

// ChunkPlainText splits non-markdown text at paragraph boundaries and
// applies the same size constraints as the markdown path.
func ChunkPlainText(text string) []Chunk {
	var sections []string
	for _, para := range strings.Split(text, "\n\n") {
		if s := strings.TrimSpace(para); s != "" {
			sections = append(sections, s)
		}
	}
	return sizeConstrained(sections)
}

// sizeConstrained merges undersized sections and splits oversized ones,
// measured in runes.
func sizeConstrained(sections []string) []Chunk {
	var merged []string
	for _, s := range sections {
		if len(merged) > 0 && utf8.RuneCountInString(merged[len(merged)-1]) < minChunkSize {
			candidate := merged[len(merged)-1] + "\n\n" + s
			if utf8.RuneCountInString(candidate) <= maxChunkSize {
				merged[len(merged)-1] = candidate
				continue
			}
		}
		merged = append(merged, s)
	}

	var chunks []Chunk
	for _, s := range merged {
		for _, piece := range splitText(s) {
			chunks = append(chunks, Chunk{Index: len(chunks), Text: piece})
		}
	}
	return chunks
}

// splitText splits text exceeding maxChunkSize, preferring paragraph,
// then line, then sentence boundaries.
func splitText(s string) []string {
	runes := []rune(s)
	if len(runes) <= maxChunkSize {
		return []string{s}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + maxChunkSize
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		window := string(runes[start:end])
		splitPoint := end
		if b := strings.LastIndex(window, "\n\n"); b != -1 {
			splitPoint = start + utf8.RuneCountInString(window[:b]) + 2
		} else if b := strings.LastIndex(window, "\n"); b != -1 {
			splitPoint = start + utf8.RuneCountInString(window[:b]) + 1
		} else if b := strings.LastIndex(window, ". "); b != -1 {
			splitPoint = start + utf8.RuneCountInString(window[:b]) + 2
		}
		pieces = append(pieces, string(runes[start:splitPoint]))
		start = splitPoint
	}
	return pieces
}

// extractTextFromNode extracts text content from a node and its children.
func extractTextFromNode(n ast.Node, content []byte) string {
	var textBuilder strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			textBuilder.Write(v.Segment.Value(content))
		case *ast.String:
			textBuilder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(textBuilder.String())
}

// extractTableRowText formats a table row's cells with pipe separators.
func extractTableRowText(row ast.Node, content []byte) string {
	var rowBuilder strings.Builder
	cellCount := 0
	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				rowBuilder.WriteString(" | ")
			}
			rowBuilder.WriteString(extractTextFromNode(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return rowBuilder.String()
}
