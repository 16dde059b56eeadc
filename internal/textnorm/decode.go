package textnorm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// ErrNotText is returned by Decode when the payload is not recognisable text.
var ErrNotText = errors.New("payload is not text")

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
)

// Decode converts raw clipboard bytes to a UTF-8 string. UTF-8 passes through
// (minus a BOM); UTF-16 is recognised by BOM or by charset detection. A
// trailing NUL terminator, as left by some native clipboards, is dropped.
func Decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		raw = raw[len(bomUTF8):]
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), raw[2:])
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), raw[2:])
	}
	if utf8.Valid(raw) {
		return strings.TrimRight(string(raw), "\x00"), nil
	}

	charset, err := DetectEncoding(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotText, err)
	}
	switch strings.ToLower(charset) {
	case "utf-16le":
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(), raw)
	case "utf-16be":
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(), raw)
	default:
		return "", fmt.Errorf("%w: unsupported encoding %s", ErrNotText, charset)
	}
}

// DetectEncoding returns the best-guess charset name for content.
func DetectEncoding(content []byte) (string, error) {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(content)
	if err != nil {
		return "", err
	}
	return result.Charset, nil
}

func decodeWith(dec *encoding.Decoder, raw []byte) (string, error) {
	out, err := dec.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotText, err)
	}
	return strings.TrimRight(string(out), "\x00"), nil
}
