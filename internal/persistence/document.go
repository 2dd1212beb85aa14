// Package persistence contains helpers shared by document store implementations.
package persistence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

// DefaultDocumentName keys the single document row in SQL-backed stores.
const DefaultDocumentName = "default"

var errMissingKey = errors.New("document must contain activities and categories")

// Encode serialises the document in its stored form: two top-level keys,
// two-space indentation, no HTML escaping, non-ASCII written as lowercase
// \uXXXX escapes and no trailing newline.
func Encode(doc *domain.Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	normalized := *doc
	normalized.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&normalized); err != nil {
		return nil, err
	}
	return escapeNonASCII(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// escapeNonASCII rewrites every non-ASCII rune as a JSON escape, using a
// surrogate pair outside the basic multilingual plane. Encoded JSON only
// carries such runes inside strings, so the result stays valid.
func escapeNonASCII(data []byte) []byte {
	if !bytes.ContainsFunc(data, func(r rune) bool { return r >= utf8.RuneSelf }) {
		return data
	}

	out := make([]byte, 0, len(data)+len(data)/4)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		switch {
		case r < utf8.RuneSelf:
			out = append(out, byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			out = fmt.Appendf(out, "\\u%04x\\u%04x", hi, lo)
		default:
			out = fmt.Appendf(out, "\\u%04x", r)
		}
	}
	return out
}

// Decode parses a stored document. Malformed JSON and documents missing
// either top-level key are rejected.
func Decode(data []byte) (*domain.Document, error) {
	var raw struct {
		Activities *json.RawMessage `json:"activities"`
		Categories *json.RawMessage `json:"categories"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw.Activities == nil || raw.Categories == nil {
		return nil, errMissingKey
	}

	var doc domain.Document
	if err := json.Unmarshal(*raw.Activities, &doc.Activities); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	if err := json.Unmarshal(*raw.Categories, &doc.Categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}
