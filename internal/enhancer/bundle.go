package enhancer

import (
	"fmt"

	"github.com/First008/jester/internal/intent"
	"github.com/First008/jester/internal/lookup"
)

// Bundle is the normalized live data fetched for one utterance
type Bundle struct {
	Crypto  *lookup.CryptoQuote   `json:"crypto,omitempty"`
	Weather *lookup.Weather       `json:"weather,omitempty"`
	Search  *lookup.SearchSummary `json:"search,omitempty"`

	// CrossReference lists the categories with data when there are two or
	// more, asking for one combined remark
	CrossReference []intent.Category `json:"cross_reference,omitempty"`

	// Attempted lists every category that was detected
	Attempted []intent.Category `json:"attempted"`
}

// Empty reports whether no live data was fetched. A nil bundle is empty.
func (b *Bundle) Empty() bool {
	return b == nil || (b.Crypto == nil && b.Weather == nil && b.Search == nil)
}

// Categories returns the categories with data, in canonical order
func (b *Bundle) Categories() []intent.Category {
	if b == nil {
		return nil
	}

	var present []intent.Category
	if b.Crypto != nil {
		present = append(present, intent.CategoryCrypto)
	}
	if b.Weather != nil {
		present = append(present, intent.CategoryWeather)
	}
	if b.Search != nil {
		present = append(present, intent.CategoryNews)
	}
	return present
}

// add stores a record in its field
func (b *Bundle) add(r lookup.Record) error {
	switch rec := r.(type) {
	case lookup.CryptoQuote:
		b.Crypto = &rec
	case lookup.Weather:
		b.Weather = &rec
	case lookup.SearchSummary:
		b.Search = &rec
	default:
		return fmt.Errorf("%w: unexpected record %T", lookup.ErrMalformedPayload, r)
	}
	return nil
}

// finalize sets CrossReference from the populated fields
func (b *Bundle) finalize() {
	if present := b.Categories(); len(present) >= 2 {
		b.CrossReference = present
	}
}
