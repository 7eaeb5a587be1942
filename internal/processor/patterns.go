package processor

import (
	"regexp"
	"strings"
)

// HeadingLevel tags a detected heading with its structural depth.
type HeadingLevel string

const (
	LevelChapter    HeadingLevel = "chapter"
	LevelSection    HeadingLevel = "section"
	LevelSubsection HeadingLevel = "subsection"
)

// Heading is a single heading match on a page: the level it matched at,
// its numbering text and the free-text title.
type Heading struct {
	Level  HeadingLevel
	Number string
	Title  string
}

// Heading patterns are anchored to line boundaries so that prose
// mentions ("see Chapter 3: Geometry for details") never register as
// structure. Chapter matching is case-insensitive; numbered section
// matching is not. A chapter title may be empty ("Chapter 4:" on a line
// of its own); a section heading requires one.
var (
	chapterPattern    = regexp.MustCompile(`(?im)^Chapter[ \t]+(\d+)[.:][ \t]*(.*)$`)
	sectionPattern    = regexp.MustCompile(`(?m)^(\d+)\.[ \t]+(.+)$`)
	subsectionPattern = regexp.MustCompile(`(?m)^(\d+)\.(\d+)\.[ \t]+(.+)$`)
)

// DetectHeadings scans one page body and reports every heading match:
// chapters first, then sections, then subsections, each group in page
// order. The detector keeps no state; chapter/section currency is the
// builder's concern.
//
// Subsections are reported as their own level but the assembly step does
// not consume them yet.
func DetectHeadings(pageText string) []Heading {
	var headings []Heading
	for _, m := range chapterPattern.FindAllStringSubmatch(pageText, -1) {
		headings = append(headings, Heading{
			Level:  LevelChapter,
			Number: m[1],
			Title:  strings.TrimSpace(m[2]),
		})
	}
	for _, m := range sectionPattern.FindAllStringSubmatch(pageText, -1) {
		headings = append(headings, Heading{
			Level:  LevelSection,
			Number: m[1],
			Title:  strings.TrimSpace(m[2]),
		})
	}
	for _, m := range subsectionPattern.FindAllStringSubmatch(pageText, -1) {
		headings = append(headings, Heading{
			Level:  LevelSubsection,
			Number: m[1] + "." + m[2],
			Title:  strings.TrimSpace(m[3]),
		})
	}
	return headings
}
