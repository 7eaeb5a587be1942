package processor

import "testing"

func findLevel(headings []Heading, level HeadingLevel) []Heading {
	var out []Heading
	for _, h := range headings {
		if h.Level == level {
			out = append(out, h)
		}
	}
	return out
}

func TestDetectHeadings_ChapterForms(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		number string
		title  string
	}{
		{"colon separator", "Chapter 1: Introduction\n", "1", "Introduction"},
		{"dot separator", "Chapter 2. Advanced Topics\n", "2", "Advanced Topics"},
		{"case insensitive", "CHAPTER 3: Loud\n", "3", "Loud"},
		{"lower case", "chapter 4: quiet\n", "4", "quiet"},
		{"empty title", "Chapter 5:\n", "5", ""},
		{"trailing spaces trimmed", "Chapter 6: Spaced   \n", "6", "Spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters := findLevel(DetectHeadings(tt.text), LevelChapter)
			if len(chapters) != 1 {
				t.Fatalf("expected 1 chapter, got %d", len(chapters))
			}
			if chapters[0].Number != tt.number {
				t.Errorf("expected number %q, got %q", tt.number, chapters[0].Number)
			}
			if chapters[0].Title != tt.title {
				t.Errorf("expected title %q, got %q", tt.title, chapters[0].Title)
			}
		})
	}
}

func TestDetectHeadings_SectionForms(t *testing.T) {
	headings := DetectHeadings("1. Overview\nsome text\n12. A Longer Section Title\n")

	sections := findLevel(headings, LevelSection)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Number != "1" || sections[0].Title != "Overview" {
		t.Errorf("unexpected first section: %+v", sections[0])
	}
	if sections[1].Number != "12" || sections[1].Title != "A Longer Section Title" {
		t.Errorf("unexpected second section: %+v", sections[1])
	}
}

func TestDetectHeadings_SectionNeedsTitleAndSpace(t *testing.T) {
	for _, text := range []string{
		"1.Introduction\n", // no space after the dot
		"2.\n",             // no title at all
		"3.   \n",          // whitespace is not a title
	} {
		if got := findLevel(DetectHeadings(text), LevelSection); len(got) != 0 {
			t.Errorf("%q: expected no section, got %+v", text, got)
		}
	}
}

func TestDetectHeadings_SubsectionForms(t *testing.T) {
	headings := DetectHeadings("2.3. Deep Dive\n")

	subs := findLevel(headings, LevelSubsection)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subsection, got %d", len(subs))
	}
	if subs[0].Number != "2.3" {
		t.Errorf("expected number %q, got %q", "2.3", subs[0].Number)
	}
	if subs[0].Title != "Deep Dive" {
		t.Errorf("expected title %q, got %q", "Deep Dive", subs[0].Title)
	}

	// A subsection line must not double as a section.
	if got := findLevel(headings, LevelSection); len(got) != 0 {
		t.Errorf("expected no section from a subsection line, got %+v", got)
	}
}

func TestDetectHeadings_SubsectionNeedsTrailingDot(t *testing.T) {
	if got := findLevel(DetectHeadings("2.3 Missing Dot\n"), LevelSubsection); len(got) != 0 {
		t.Errorf("expected no subsection, got %+v", got)
	}
}

func TestDetectHeadings_AnchoredToLineStart(t *testing.T) {
	text := "see Chapter 2: Basics for details\n" +
		"as shown in 3. something earlier\n" +
		"compare with 4.5. the appendix\n"

	if got := DetectHeadings(text); len(got) != 0 {
		t.Errorf("prose mentions must not register as headings, got %+v", got)
	}
}

func TestDetectHeadings_GroupsByCategoryInPageOrder(t *testing.T) {
	text := "Chapter 1: One\n" +
		"some intro\n" +
		"1. First\n" +
		"Chapter 2: Two\n" +
		"2. Second\n" +
		"2.1. Nested\n"

	headings := DetectHeadings(text)

	wantLevels := []HeadingLevel{LevelChapter, LevelChapter, LevelSection, LevelSection, LevelSubsection}
	if len(headings) != len(wantLevels) {
		t.Fatalf("expected %d headings, got %d (%+v)", len(wantLevels), len(headings), headings)
	}
	for i, want := range wantLevels {
		if headings[i].Level != want {
			t.Errorf("heading %d: expected level %q, got %q", i, want, headings[i].Level)
		}
	}

	wantTitles := []string{"One", "Two", "First", "Second", "Nested"}
	for i, want := range wantTitles {
		if headings[i].Title != want {
			t.Errorf("heading %d: expected title %q, got %q", i, want, headings[i].Title)
		}
	}
}
