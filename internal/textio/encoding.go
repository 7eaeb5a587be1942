package textio

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names accepted for pipeline input and output. EncodingAuto
// honors a Unicode BOM when one is present and otherwise decodes UTF-8;
// a wrong guess yields replacement runes, never an error.
const (
	EncodingAuto    = "auto"
	EncodingUTF8    = "utf-8"
	EncodingUTF16LE = "utf-16le"
	EncodingUTF16BE = "utf-16be"
)

func decoderFor(name string) (transform.Transformer, error) {
	switch strings.ToLower(name) {
	case EncodingAuto, "":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case EncodingUTF8:
		return unicode.UTF8.NewDecoder(), nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

func encoderFor(name string) (transform.Transformer, error) {
	switch strings.ToLower(name) {
	case EncodingUTF8, EncodingAuto, "":
		return unicode.UTF8.NewEncoder(), nil
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder(), nil
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// DecodeFile reads path and decodes its content into a UTF-8 string
// according to the named encoding.
func DecodeFile(path, encoding string) (string, error) {
	dec, err := decoderFor(encoding)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	decoded, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(decoded), nil
}

// WriteFile encodes text per the named encoding and writes it to path
// atomically. UTF-16 output carries a BOM.
func WriteFile(path, text, encoding string) error {
	enc, err := encoderFor(encoding)
	if err != nil {
		return err
	}
	encoded, _, err := transform.Bytes(enc, []byte(text))
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFileAtomic(path, encoded)
}

// Sanitize strips NUL and other control characters that PDF text
// extraction tends to leave behind, keeping tabs and line breaks.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}
