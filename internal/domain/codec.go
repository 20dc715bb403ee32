package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// quoteDocument mirrors Quote with pointer fields so missing keys can be told
// apart from empty ones while decoding.
type quoteDocument struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
}

// DecodeCollection parses a JSON array of {"text","category"} objects.
// Every element must carry both fields, non-empty after trimming; values are
// returned trimmed. Any failure yields a ParseError tagged with source.
func DecodeCollection(source string, data []byte) (Collection, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, NewParseError(source, errors.New("expected a JSON array of quotes"))
	}

	var docs []*quoteDocument
	if err := json.Unmarshal(trimmed, &docs); err != nil {
		return nil, NewParseError(source, err)
	}

	out := make(Collection, 0, len(docs))

	for i, doc := range docs {
		if doc == nil || doc.Text == nil || strings.TrimSpace(*doc.Text) == "" {
			return nil, NewElementParseError(source, i, "text")
		}

		if doc.Category == nil || strings.TrimSpace(*doc.Category) == "" {
			return nil, NewElementParseError(source, i, "category")
		}

		out = append(out, Quote{
			Text:     strings.TrimSpace(*doc.Text),
			Category: strings.TrimSpace(*doc.Category),
		})
	}

	return out, nil
}

// EncodeCollection serializes the collection as a JSON array.
// A nil collection encodes as "[]" so the stored value always decodes back.
func EncodeCollection(c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}

	return json.Marshal(c)
}
