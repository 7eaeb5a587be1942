package processor

import (
	"encoding/json"
	"fmt"

	"textbook-rag/internal/models"
	"textbook-rag/internal/textio"
)

// WriteStructure saves a tree to path as indented JSON. The write goes
// through a temp file and rename so readers never observe a partial
// structure.
func WriteStructure(root *models.TextNode, path string) error {
	return textio.WriteJSONAtomic(path, root)
}

// ReadStructure loads a structure file written by WriteStructure.
// Decoding is BOM-aware because older structure files were written in
// UTF-16.
func ReadStructure(path string) (*models.TextNode, error) {
	text, err := textio.DecodeFile(path, textio.EncodingAuto)
	if err != nil {
		return nil, fmt.Errorf("read structure %s: %w", path, err)
	}
	var root models.TextNode
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil, fmt.Errorf("parse structure %s: %w", path, err)
	}
	return &root, nil
}
