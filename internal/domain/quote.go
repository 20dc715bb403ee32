// Package domain contains core business entities and rules.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Quote is a text/category pair, the atomic unit of content.
// Quotes have no identity: two quotes with the same text and category are
// indistinguishable, and equality is structural.
type Quote struct {
	// Text is the quotation itself.
	Text string `json:"text"`

	// Category groups quotes for filtering (e.g. "Motivation").
	Category string `json:"category"`
}

// NewQuote trims surrounding whitespace from both fields and validates them.
// Returns a ValidationError naming the first empty field.
func NewQuote(text, category string) (Quote, error) {
	q := Quote{
		Text:     strings.TrimSpace(text),
		Category: strings.TrimSpace(category),
	}

	if err := q.Validate(); err != nil {
		return Quote{}, err
	}

	return q, nil
}

// Validate reports whether both fields are non-empty after trimming.
func (q Quote) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "empty quote")
	}

	if strings.TrimSpace(q.Category) == "" {
		return NewValidationError("category", "empty category")
	}

	return nil
}

// Collection is an ordered sequence of quotes. Insertion order is preserved
// and duplicates are allowed. It is the unit of persistence and comparison.
type Collection []Quote

// Equal reports whether both collections hold the same quotes in the same order.
// A nil collection equals an empty one.
func (c Collection) Equal(other Collection) bool {
	if len(c) != len(other) {
		return false
	}

	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}

	return true
}

// Clone returns an independent copy that never aliases the receiver.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)

	return out
}

// Normalize returns a trimmed copy of c, the form DecodeCollection reads
// back. Returns a ValidationError naming the first element with an empty
// field.
func (c Collection) Normalize() (Collection, error) {
	out := make(Collection, 0, len(c))

	for i, q := range c {
		n, err := NewQuote(q.Text, q.Category)
		if err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				return nil, NewValidationError(fmt.Sprintf("quotes[%d].%s", i, ve.Field), ve.Message)
			}

			return nil, err
		}

		out = append(out, n)
	}

	return out, nil
}

// Categories returns the distinct categories in first-seen order.
func (c Collection) Categories() []string {
	seen := make(map[string]struct{}, len(c))
	out := make([]string, 0, len(c))

	for _, q := range c {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}

// AllCategories is the filter value that matches every quote.
const AllCategories = "all"

// Filter returns the quotes in the given category.
// An empty category or AllCategories returns a copy of the whole collection.
func (c Collection) Filter(category string) Collection {
	if category == "" || category == AllCategories {
		return c.Clone()
	}

	out := make(Collection, 0, len(c))
	for _, q := range c {
		if q.Category == category {
			out = append(out, q)
		}
	}

	return out
}

// DefaultQuotes returns the seed collection used when nothing valid is stored.
func DefaultQuotes() Collection {
	return Collection{
		{Text: "The best way to predict the future is to create it.", Category: "Motivation"},
		{Text: "Do what you can, with what you have, where you are.", Category: "Inspiration"},
		{Text: "Success is not final, failure is not fatal: It is the courage to continue that counts.", Category: "Perseverance"},
	}
}
