package nutrition

import (
	"testing"

	"nutrition-api/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
)

func testHeuristics() config.HeuristicConfig {
	return config.HeuristicConfig{
		TablespoonGrams:        15,
		TeaspoonGrams:          5,
		CupGrams:               240,
		CloveGrams:             5,
		UnitGrams:              80,
		EstimateMaxIngredients: 30,
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		raw        string
		quantity   float64
		unit       Unit
		name       string
		searchKey  string
		multiplier float64
	}{
		{"200g frango grelhado", 200, UnitGram, "frango grelhado", "frango grelhado", 2},
		{"1,5 kg de batata", 1.5, UnitKilogram, "batata", "batata", 15},
		{"250 ml leite magro", 250, UnitMilliliter, "leite", "leite", 2.5},
		{"2 colheres de sopa de azeite", 2, UnitTablespoon, "azeite", "azeite", 0.3},
		{"1 colher de chá de açúcar", 1, UnitTeaspoon, "acucar", "acucar", 0.05},
		{"1/2 chávena de arroz", 0.5, UnitCup, "arroz", "arroz", 1.2},
		{"3 dentes de alho picados", 3, UnitClove, "alho", "alho", 0.15},
		{"2 fatias de pão integral", 2, UnitSlice, "pao", "pao", 1.6},
		{"1 ovo", 1, UnitEgg, "ovo", "ovo", 0.8},
		{"2 ovos mexidos", 2, UnitEgg, "ovo mexidos", "ovo mexidos", 1.6},
		{"2 tomates grandes", 2, UnitCount, "tomates", "tomates", 1.6},
		{"sal", 0, UnitNone, "sal", "sal", 1},
		{"Queijo fresco da serra ralado", 0, UnitNone, "queijo serra", "queijo serra", 1},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			line := ParseLine(tt.raw, testHeuristics())
			assert.Equal(t, tt.raw, line.Raw)
			assert.InDelta(t, tt.quantity, line.Quantity, 1e-9)
			assert.Equal(t, tt.unit, line.Unit)
			assert.Equal(t, tt.name, line.Name)
			assert.Equal(t, tt.searchKey, line.SearchKey)
			assert.InDelta(t, tt.multiplier, line.Multiplier, 1e-9)
		})
	}
}

func TestParseLine_SearchKeyKeepsTwoWords(t *testing.T) {
	line := ParseLine("100g peito de frango do campo assado", testHeuristics())
	assert.Equal(t, "peito frango", line.SearchKey)
}

func TestParseLine_UsesConfiguredUnitWeight(t *testing.T) {
	h := testHeuristics()
	h.UnitGrams = 120

	line := ParseLine("1 unidade de banana", h)
	assert.Equal(t, UnitPiece, line.Unit)
	assert.InDelta(t, 1.2, line.Multiplier, 1e-9)
}

func TestParseLine_EmptyInput(t *testing.T) {
	line := ParseLine("   ", testHeuristics())
	assert.Equal(t, "", line.SearchKey)
	assert.Equal(t, 1.0, line.Multiplier)
}
