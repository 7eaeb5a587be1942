// Package extractor pulls plain text out of PDF textbooks and writes it
// as page-delimited text files for the structure stage.
package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"textbook-rag/internal/textio"
)

// ErrNoExtractableText is returned when no page of a PDF yields any
// text, which usually means a scanned document with no text layer.
var ErrNoExtractableText = errors.New("no extractable text")

// Extractor converts PDFs into page-delimited text. Each page body is
// preceded by a "\n[PAGE_<n>]\n" marker that downstream stages split on.
type Extractor struct {
	log      *slog.Logger
	encoding string
}

// New creates an extractor that writes output files in the given
// encoding.
func New(log *slog.Logger, encoding string) *Extractor {
	return &Extractor{log: log, encoding: encoding}
}

// ExtractFile extracts one PDF into <outDir>/<stem>.txt and returns the
// output path.
func (e *Extractor) ExtractFile(pdfPath, outDir string) (string, error) {
	if err := textio.EnsureDir(outDir); err != nil {
		return "", err
	}

	text, err := e.extractText(pdfPath)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	outPath := filepath.Join(outDir, stem+".txt")
	if err := textio.WriteFile(outPath, text, e.encoding); err != nil {
		return "", fmt.Errorf("failed to write extracted text: %w", err)
	}

	e.log.Info("extracted textbook", "pdf", pdfPath, "output", outPath)
	return outPath, nil
}

func (e *Extractor) extractText(pdfPath string) (string, error) {
	f, r, err := pdf.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var sb strings.Builder
	extracted := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			e.log.Warn("skipping page", "pdf", pdfPath, "page", i, "error", err)
			continue
		}
		fmt.Fprintf(&sb, "\n[PAGE_%d]\n%s", i, textio.Sanitize(text))
		extracted++
	}

	if extracted == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoExtractableText, pdfPath)
	}
	return sb.String(), nil
}

// ExtractDir extracts every .pdf in dir. A PDF that fails is logged and
// skipped so one corrupt file doesn't sink the batch.
func (e *Extractor) ExtractDir(dir, outDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		pdfPath := filepath.Join(dir, entry.Name())
		if _, err := e.ExtractFile(pdfPath, outDir); err != nil {
			e.log.Error("failed to extract textbook", "pdf", pdfPath, "error", err)
		}
	}
	return nil
}
