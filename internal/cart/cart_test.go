package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeArrayShape(t *testing.T) {
	raw := json.RawMessage(`[
		{"combo_id": "c1", "quantity": 1, "flavors": ["Calabresa"]},
		{"combo_id": "c2", "quantity": 3, "observations": "sem cebola"}
	]`)

	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ComboID != "c1" || lines[0].Quantity != 1 || len(lines[0].Flavors) != 1 {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Observations != "sem cebola" {
		t.Errorf("expected observations preserved, got %+v", lines[1])
	}
}

func TestDecodeLegacyCamelCaseField(t *testing.T) {
	raw := json.RawMessage(`[{"comboId": "c1", "quantity": 2}]`)

	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(lines) != 1 || lines[0].ComboID != "c1" || lines[0].Quantity != 2 {
		t.Errorf("unexpected lines: %+v", lines)
	}
}

func TestDecodeLegacyMapShape(t *testing.T) {
	raw := json.RawMessage(`{"combo-1": 2}`)

	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].ComboID != "combo-1" || lines[0].Quantity != 2 {
		t.Errorf("unexpected line: %+v", lines[0])
	}
}

func TestDecodeLegacyMapSortsIds(t *testing.T) {
	raw := json.RawMessage(`{"combo-9": 1, "combo-1": 1, "combo-5": 1}`)

	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []string{"combo-1", "combo-5", "combo-9"}
	for i, id := range want {
		if lines[i].ComboID != id {
			t.Errorf("line %d: expected %s, got %s", i, id, lines[i].ComboID)
		}
	}
}

func TestDecodeDropsNonPositiveQuantities(t *testing.T) {
	raw := json.RawMessage(`{"combo-1": 0, "combo-2": -1, "combo-3": 1}`)

	lines, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(lines) != 1 || lines[0].ComboID != "combo-3" {
		t.Errorf("expected only combo-3 to survive, got %+v", lines)
	}
}

func TestDecodeRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`"a string"`, `42`, `true`} {
		if _, err := Decode(json.RawMessage(raw)); !errors.Is(err, ErrMalformedCart) {
			t.Errorf("Decode(%s): expected ErrMalformedCart, got %v", raw, err)
		}
	}
}

func TestDecodeEmptyPayload(t *testing.T) {
	lines, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode(nil) error = %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("expected no lines, got %+v", lines)
	}
}

func catalogOf(combos map[string]Combo) Resolver {
	return ResolverFunc(func(_ context.Context, id string) (Combo, error) {
		c, ok := combos[id]
		if !ok {
			return Combo{}, ErrComboNotFound
		}
		return c, nil
	})
}

// Legacy map entry resolves to one line priced from the current catalog,
// never from anything stored client-side.
func TestResolveLegacyMapAgainstCatalog(t *testing.T) {
	lines, err := Decode(json.RawMessage(`{"combo-1": 2}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	resolver := catalogOf(map[string]Combo{
		"combo-1": {ID: "combo-1", Name: "Pizza Grande", Price: decimal.RequireFromString("45.90")},
	})
	resolved, err := Resolve(context.Background(), resolver, lines)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved line, got %d", len(resolved))
	}
	got := resolved[0]
	if got.ComboID != "combo-1" || got.Quantity != 2 {
		t.Errorf("unexpected line: %+v", got)
	}
	if got.ComboName != "Pizza Grande" {
		t.Errorf("expected catalog name, got %q", got.ComboName)
	}
	if !got.UnitPrice.Equal(decimal.RequireFromString("45.90")) {
		t.Errorf("expected catalog price, got %s", got.UnitPrice)
	}
	if !got.Subtotal.Equal(decimal.RequireFromString("91.80")) {
		t.Errorf("expected subtotal 91.80, got %s", got.Subtotal)
	}
}

func TestResolveDropsUnknownCombos(t *testing.T) {
	lines := []Line{
		{ComboID: "combo-1", Quantity: 1},
		{ComboID: "combo-gone", Quantity: 1},
	}
	resolver := catalogOf(map[string]Combo{
		"combo-1": {ID: "combo-1", Name: "Pizza Média", Price: decimal.RequireFromString("32.00")},
	})

	resolved, err := Resolve(context.Background(), resolver, lines)

	var unknown *UnknownCombosError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownCombosError, got %v", err)
	}
	if len(unknown.IDs) != 1 || unknown.IDs[0] != "combo-gone" {
		t.Errorf("unexpected unknown ids: %v", unknown.IDs)
	}
	if len(resolved) != 1 || resolved[0].ComboID != "combo-1" {
		t.Errorf("expected the known line to survive, got %+v", resolved)
	}
}

func TestResolveFailsOnResolverError(t *testing.T) {
	boom := errors.New("catalog down")
	resolver := ResolverFunc(func(context.Context, string) (Combo, error) {
		return Combo{}, boom
	})

	if _, err := Resolve(context.Background(), resolver, []Line{{ComboID: "c1", Quantity: 1}}); !errors.Is(err, boom) {
		t.Errorf("expected resolver error propagated, got %v", err)
	}
}

func TestTotal(t *testing.T) {
	resolved := []ResolvedLine{
		{Subtotal: decimal.RequireFromString("91.80")},
		{Subtotal: decimal.RequireFromString("8.20")},
	}
	if got := Total(resolved); !got.Equal(decimal.RequireFromString("100.00")) {
		t.Errorf("expected 100.00, got %s", got)
	}
}
