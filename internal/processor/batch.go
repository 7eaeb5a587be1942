package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"textbook-rag/internal/textio"
)

// ErrEmptyDocument is returned when a textbook file decodes to nothing
// but whitespace.
var ErrEmptyDocument = errors.New("document contains no text")

// Processor drives the text-to-structure stage for one or many
// textbooks.
type Processor struct {
	log      *slog.Logger
	builder  *StructureBuilder
	encoding string
}

// NewProcessor creates a processor that decodes input files with the
// given encoding name (textio.EncodingAuto to sniff a BOM).
func NewProcessor(log *slog.Logger, encoding string) *Processor {
	return &Processor{
		log:      log,
		builder:  NewStructureBuilder(log),
		encoding: encoding,
	}
}

// ProcessTextbook builds the structure tree for one extracted textbook
// and writes it to <outputDir>/<title>_structure.json, returning the
// output path. The title is the input filename without its extension.
func (p *Processor) ProcessTextbook(txtPath, outputDir string) (string, error) {
	if err := textio.EnsureDir(outputDir); err != nil {
		return "", err
	}

	content, err := textio.DecodeFile(txtPath, p.encoding)
	if err != nil {
		return "", fmt.Errorf("failed to read textbook %s: %w", txtPath, err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, txtPath)
	}

	title := strings.TrimSuffix(filepath.Base(txtPath), filepath.Ext(txtPath))
	p.log.Info("building structure", "textbook", title, "source", txtPath)

	tree, err := p.builder.Build(title, content)
	if err != nil {
		return "", fmt.Errorf("failed to build structure for %s: %w", title, err)
	}

	outPath := filepath.Join(outputDir, title+"_structure.json")
	if err := WriteStructure(tree.Root, outPath); err != nil {
		return "", fmt.Errorf("failed to write structure for %s: %w", title, err)
	}

	p.log.Info("structure written", "textbook", title, "nodes", tree.Len(), "output", outPath)
	return outPath, nil
}

// ProcessTextbooks runs ProcessTextbook over paths in order. A failed
// textbook is logged and the batch moves on; one bad input never stops
// the rest.
func (p *Processor) ProcessTextbooks(paths []string, outputDir string) {
	for _, path := range paths {
		p.log.Info("processing textbook", "path", path)
		if _, err := p.ProcessTextbook(path, outputDir); err != nil {
			p.log.Error("failed to process textbook", "path", path, "error", err)
		}
	}
}
