// Package chunker turns structure trees into retrieval chunks sized for
// embedding, each tagged with its breadcrumb through the book.
package chunker

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"textbook-rag/internal/models"
	"textbook-rag/internal/processor"
	"textbook-rag/internal/textio"
)

// Chunker splits leaf content into chunks of roughly Size runes with
// Overlap runes carried between consecutive chunks. Pieces shorter than
// Min are dropped.
type Chunker struct {
	log     *slog.Logger
	Size    int
	Overlap int
	Min     int
}

// New creates a chunker, substituting defaults for non-positive values.
func New(log *slog.Logger, size, overlap, min int) *Chunker {
	if size <= 0 {
		size = 512
	}
	if overlap <= 0 {
		overlap = 80
	}
	if min <= 0 {
		min = 100
	}
	return &Chunker{log: log, Size: size, Overlap: overlap, Min: min}
}

// ChunkTree walks a structure tree and produces chunks from every leaf.
// Each chunk keeps the leaf's node ID and page numbers, and a breadcrumb
// of the titles above it ("<book> > Chapter: ... > Section: ...").
func (c *Chunker) ChunkTree(root *models.TextNode, textbook string) []models.Chunk {
	var chunks []models.Chunk
	c.walk(root, nil, textbook, &chunks)
	return chunks
}

func (c *Chunker) walk(node *models.TextNode, trail []string, textbook string, out *[]models.Chunk) {
	if node.Type == models.NodeLeaf && node.Content != "" {
		breadcrumb := strings.Join(trail, " > ")
		for _, piece := range c.split(node.Content) {
			*out = append(*out, models.Chunk{
				ID:         uuid.NewString(),
				Textbook:   textbook,
				NodeID:     node.ID,
				Breadcrumb: breadcrumb,
				Pages:      node.Pages,
				Content:    piece,
			})
		}
	}

	next := make([]string, len(trail), len(trail)+1)
	copy(next, trail)
	next = append(next, node.Title)
	for _, child := range node.Children {
		c.walk(child, next, textbook, out)
	}
}

// split breaks text into chunk-sized pieces, packing whole paragraphs
// first and falling back to sentences for paragraphs that are too large
// on their own.
func (c *Chunker) split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.Size {
		if utf8.RuneCountInString(text) >= c.Min {
			return []string{text}
		}
		return nil
	}

	var pieces []string
	var current strings.Builder
	count := 0

	for _, para := range paragraphs(text) {
		n := utf8.RuneCountInString(para)

		// An oversized paragraph gets split at sentence boundaries on
		// its own, after flushing whatever was accumulating.
		if n > c.Size {
			if count > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
				count = 0
			}
			pieces = append(pieces, c.splitSentences(para)...)
			continue
		}

		if count+n > c.Size && count > 0 {
			pieces = append(pieces, current.String())
			tail := c.overlapTail(current.String())
			current.Reset()
			count = 0
			if tail != "" {
				current.WriteString(tail)
				count = utf8.RuneCountInString(tail)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		count += n
	}
	if count > 0 {
		pieces = append(pieces, current.String())
	}

	var kept []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) >= c.Min {
			kept = append(kept, piece)
		}
	}
	return kept
}

// splitSentences packs sentences the same way split packs paragraphs. A
// single sentence longer than Size is emitted oversize rather than cut
// mid-word.
func (c *Chunker) splitSentences(text string) []string {
	var pieces []string
	var current strings.Builder
	count := 0

	for _, sent := range sentences(text) {
		n := utf8.RuneCountInString(sent)

		if count+n > c.Size && count > 0 {
			pieces = append(pieces, current.String())
			tail := c.overlapTail(current.String())
			current.Reset()
			count = 0
			if tail != "" {
				current.WriteString(tail)
				count = utf8.RuneCountInString(tail)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		count += n
	}
	if count > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// overlapTail returns the last words of text, up to Overlap runes. It
// returns "" when the whole text would fit, so a short chunk is never
// duplicated wholesale into its successor.
func (c *Chunker) overlapTail(text string) string {
	words := strings.Fields(text)
	count := 0
	start := len(words)
	for start > 0 {
		n := utf8.RuneCountInString(words[start-1])
		if count > 0 {
			n++ // joining space
		}
		if count+n > c.Overlap {
			break
		}
		count += n
		start--
	}
	if start == 0 || start == len(words) {
		return ""
	}
	return strings.Join(words[start:], " ")
}

func paragraphs(text string) []string {
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// sentences splits on terminal punctuation followed by a space. Good
// enough for textbook prose; abbreviations oversplit harmlessly.
func sentences(text string) []string {
	var result []string
	var current strings.Builder
	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		result = append(result, strings.TrimSpace(current.String()))
	}
	return result
}

// ChunkStructure chunks one structure file into
// <outDir>/<textbook>_chunks.jsonl, one chunk per line, and returns the
// number of chunks written.
func (c *Chunker) ChunkStructure(structPath, outDir string) (int, error) {
	root, err := processor.ReadStructure(structPath)
	if err != nil {
		return 0, err
	}

	textbook := strings.TrimSuffix(filepath.Base(structPath), filepath.Ext(structPath))
	textbook = strings.TrimSuffix(textbook, "_structure")

	chunks := c.ChunkTree(root, textbook)

	if err := textio.EnsureDir(outDir); err != nil {
		return 0, err
	}
	rows := make([]any, len(chunks))
	for i := range chunks {
		rows[i] = chunks[i]
	}
	outPath := filepath.Join(outDir, textbook+"_chunks.jsonl")
	if err := textio.WriteJSONLinesAtomic(outPath, rows); err != nil {
		return 0, fmt.Errorf("failed to write chunks for %s: %w", textbook, err)
	}

	c.log.Info("chunked textbook", "textbook", textbook, "chunks", len(chunks), "output", outPath)
	return len(chunks), nil
}
