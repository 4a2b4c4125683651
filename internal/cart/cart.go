// Package cart decodes persisted customer carts. Two shapes exist in the
// wild: the current array of line items and a legacy map of combo id to
// quantity. Both must keep working during the migration window.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedCart means the payload is neither an array nor a map.
var ErrMalformedCart = errors.New("cart must be a JSON array of items or a comboId→quantity map")

// Line is one normalized cart entry.
type Line struct {
	ComboID      string   `json:"combo_id"`
	Quantity     int32    `json:"quantity"`
	Flavors      []string `json:"flavors,omitempty"`
	Observations string   `json:"observations,omitempty"`
}

// UnmarshalJSON accepts both the API field names and the legacy browser
// camelCase ones.
func (l *Line) UnmarshalJSON(data []byte) error {
	var aux struct {
		ComboID       string   `json:"combo_id"`
		LegacyComboID string   `json:"comboId"`
		Quantity      int32    `json:"quantity"`
		Flavors       []string `json:"flavors"`
		Observations  string   `json:"observations"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.ComboID = aux.ComboID
	if l.ComboID == "" {
		l.ComboID = aux.LegacyComboID
	}
	l.Quantity = aux.Quantity
	l.Flavors = aux.Flavors
	l.Observations = aux.Observations
	return nil
}

// Decode parses a cart payload in either shape into normalized lines.
// Map entries come out sorted by combo id so the result is deterministic.
// Entries with a non-positive quantity are dropped.
func Decode(raw json.RawMessage) ([]Line, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var lines []Line
		if err := json.Unmarshal(trimmed, &lines); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
		}
		out := lines[:0]
		for _, l := range lines {
			if l.Quantity > 0 {
				out = append(out, l)
			}
		}
		return out, nil
	case '{':
		var legacy map[string]int32
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCart, err)
		}
		ids := make([]string, 0, len(legacy))
		for id := range legacy {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		lines := make([]Line, 0, len(ids))
		for _, id := range ids {
			if legacy[id] > 0 {
				lines = append(lines, Line{ComboID: id, Quantity: legacy[id]})
			}
		}
		return lines, nil
	default:
		return nil, ErrMalformedCart
	}
}

// Combo is the catalog data a resolved line needs.
type Combo struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	MaxFlavors int32
}

// ErrComboNotFound is returned by a Resolver for an unknown id.
var ErrComboNotFound = errors.New("combo not found")

// Resolver looks a combo up by the id stored in the cart.
type Resolver interface {
	ResolveCombo(ctx context.Context, id string) (Combo, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, id string) (Combo, error)

func (f ResolverFunc) ResolveCombo(ctx context.Context, id string) (Combo, error) {
	return f(ctx, id)
}

// ResolvedLine is a cart line priced from the current catalog.
type ResolvedLine struct {
	Line
	ComboName string          `json:"combo_name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// UnknownCombosError lists cart ids the catalog no longer knows. The lines
// that did resolve are still returned alongside it.
type UnknownCombosError struct {
	IDs []string
}

func (e *UnknownCombosError) Error() string {
	return "unknown combos in cart: " + strings.Join(e.IDs, ", ")
}

// Resolve prices every line from the catalog. Prices always come from the
// resolver; whatever the stored cart claimed is ignored. Lines whose combo no
// longer exists are dropped and reported through UnknownCombosError.
func Resolve(ctx context.Context, r Resolver, lines []Line) ([]ResolvedLine, error) {
	resolved := make([]ResolvedLine, 0, len(lines))
	var unknown []string
	for _, l := range lines {
		combo, err := r.ResolveCombo(ctx, l.ComboID)
		if err != nil {
			if errors.Is(err, ErrComboNotFound) {
				unknown = append(unknown, l.ComboID)
				continue
			}
			return nil, fmt.Errorf("resolve combo %s: %w", l.ComboID, err)
		}
		qty := decimal.NewFromInt(int64(l.Quantity))
		resolved = append(resolved, ResolvedLine{
			Line:      l,
			ComboName: combo.Name,
			UnitPrice: combo.Price,
			Subtotal:  combo.Price.Mul(qty),
		})
	}
	if len(unknown) > 0 {
		return resolved, &UnknownCombosError{IDs: unknown}
	}
	return resolved, nil
}

// Total sums the resolved subtotals.
func Total(lines []ResolvedLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
