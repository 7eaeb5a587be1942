package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"textbook-rag/internal/models"
)

// MIN_LEAF_SIZE is the substantiality threshold: a paragraph becomes a
// leaf node only when its trimmed length exceeds this many characters.
const MIN_LEAF_SIZE = 100

// StructureBuilder converts page-delimited textbook text into a TextNode
// tree. One builder is safely reusable across documents: every piece of
// cursor and index state is local to a Build call.
type StructureBuilder struct {
	log *slog.Logger
}

// NewStructureBuilder creates a builder that logs through log.
func NewStructureBuilder(log *slog.Logger) *StructureBuilder {
	return &StructureBuilder{log: log}
}

// buildState is the per-document state carried through one Build call:
// the tree under construction and the currently open chapter and
// section.
type buildState struct {
	tree    *models.Tree
	chapter *models.TextNode
	section *models.TextNode
}

// Build scans content page by page and returns the finished tree.
//
// While scanning, the builder keeps a two-level cursor of the most
// recently created chapter and section. Section headings found before
// any chapter are ignored, and paragraphs found before any section are
// discarded. When one page carries several chapter headings, the last
// becomes current. A new chapter does not clear the section cursor, so
// content between a chapter heading and its first section heading still
// lands under the previous chapter's open section.
//
// Pages with garbled text are logged and skipped. A broken parent link
// is not a page-level condition; it aborts the document.
func (b *StructureBuilder) Build(title, content string) (*models.Tree, error) {
	st := &buildState{tree: models.NewTree(title)}

	pages := strings.Split(content, "[PAGE_")
	for i, page := range pages[1:] {
		pageNum := i + 1
		if err := b.buildPage(st, pageBody(page), pageNum); err != nil {
			if errors.Is(err, models.ErrParentNotFound) {
				return nil, fmt.Errorf("page %d: %w", pageNum, err)
			}
			b.log.Warn("skipping page", "page", pageNum, "error", err)
		}
	}
	return st.tree, nil
}

// buildPage applies one page's detections to the cursor state, in the
// order chapters, then sections, then content paragraphs.
func (b *StructureBuilder) buildPage(st *buildState, body string, pageNum int) error {
	if err := checkPageText(body); err != nil {
		return err
	}

	headings := DetectHeadings(body)

	// Every chapter heading becomes a child of the root; the last one on
	// the page ends up current.
	for _, h := range headings {
		if h.Level != LevelChapter {
			continue
		}
		node, err := st.tree.Attach(st.tree.Root.ID, "Chapter: "+h.Title, "", models.NodeChapter)
		if err != nil {
			return err
		}
		node.Pages = append(node.Pages, pageNum)
		st.chapter = node
	}

	// Section headings only count once a chapter is current; earlier
	// ones are dropped rather than orphaned.
	if st.chapter != nil {
		for _, h := range headings {
			if h.Level != LevelSection {
				continue
			}
			node, err := st.tree.Attach(st.chapter.ID, "Section: "+h.Title, "", models.NodeSection)
			if err != nil {
				return err
			}
			node.Pages = append(node.Pages, pageNum)
			st.section = node
		}
	}

	// Substantial paragraphs attach under whichever section is current,
	// which may still be one from an earlier chapter.
	if st.section != nil {
		for _, para := range splitParagraphs(body) {
			if utf8.RuneCountInString(para) <= MIN_LEAF_SIZE {
				continue
			}
			leaf, err := st.tree.Attach(st.section.ID, fmt.Sprintf("Content from page %d", pageNum), para, models.NodeLeaf)
			if err != nil {
				return err
			}
			leaf.Pages = append(leaf.Pages, pageNum)
		}
	}

	return nil
}

// pageBody strips the remainder of a page marker from a split segment.
// The marker's closing "]\n" separates the page number digits from the
// body; a segment without it is used whole.
func pageBody(segment string) string {
	if i := strings.Index(segment, "]\n"); i >= 0 {
		return segment[i+2:]
	}
	return segment
}

// splitParagraphs breaks a page body at blank lines and drops empty
// fragments.
func splitParagraphs(body string) []string {
	var paras []string
	for _, p := range strings.Split(body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// checkPageText rejects page bodies the decoder mangled: NUL bytes and
// invalid UTF-8 both mean the input encoding guess was wrong for this
// page.
func checkPageText(body string) error {
	if !utf8.ValidString(body) {
		return errors.New("page text is not valid UTF-8")
	}
	if strings.IndexByte(body, 0x00) >= 0 {
		return errors.New("page text contains NUL bytes")
	}
	return nil
}
