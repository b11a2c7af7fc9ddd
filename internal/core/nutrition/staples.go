package nutrition

import (
	"context"
	"sort"
	"strings"

	"nutrition-api/internal/pkg/common"
)

// stapleEntry 常見食材的平均值（每 100g，熟食狀態為主）
type stapleEntry struct {
	keys     []string
	kcal     float64
	protein  float64
	carbs    float64
	fat      float64
	fullName string
}

var staples = []stapleEntry{
	{[]string{"arroz", "rice"}, 130, 2.7, 28, 0.3, "Arroz cozido"},
	{[]string{"frango", "chicken"}, 165, 31, 0, 3.6, "Peito de frango"},
	{[]string{"ovo", "egg"}, 155, 13, 1.1, 11, "Ovo"},
	{[]string{"batata doce", "sweet potato"}, 86, 1.6, 20, 0.1, "Batata-doce"},
	{[]string{"batata", "potato"}, 77, 2, 17, 0.1, "Batata"},
	{[]string{"massa", "macarrao", "esparguete", "pasta", "spaghetti"}, 131, 5, 25, 1.1, "Massa cozida"},
	{[]string{"pao", "bread"}, 265, 9, 49, 3.2, "Pão"},
	{[]string{"azeite", "olive oil"}, 884, 0, 0, 100, "Azeite"},
	{[]string{"oleo", "oil"}, 884, 0, 0, 100, "Óleo vegetal"},
	{[]string{"manteiga de amendoim", "manteiga amendoim", "peanut butter"}, 588, 25, 20, 50, "Manteiga de amendoim"},
	{[]string{"manteiga", "butter"}, 717, 0.9, 0.1, 81, "Manteiga"},
	{[]string{"leite", "milk"}, 42, 3.4, 5, 1, "Leite meio-gordo"},
	{[]string{"queijo", "cheese"}, 402, 25, 1.3, 33, "Queijo"},
	{[]string{"iogurte", "yogurt", "yoghurt"}, 59, 10, 3.6, 0.4, "Iogurte natural"},
	{[]string{"tomate", "tomato"}, 18, 0.9, 3.9, 0.2, "Tomate"},
	{[]string{"cebola", "onion"}, 40, 1.1, 9.3, 0.1, "Cebola"},
	{[]string{"alho", "garlic"}, 149, 6.4, 33, 0.5, "Alho"},
	{[]string{"cenoura", "carrot"}, 41, 0.9, 10, 0.2, "Cenoura"},
	{[]string{"brocolos", "brocolis", "broccoli"}, 34, 2.8, 7, 0.4, "Brócolos"},
	{[]string{"feijao", "beans"}, 127, 8.7, 23, 0.5, "Feijão cozido"},
	{[]string{"grao", "chickpeas", "chickpea"}, 164, 8.9, 27, 2.6, "Grão-de-bico cozido"},
	{[]string{"atum", "tuna"}, 132, 28, 0, 1, "Atum"},
	{[]string{"salmao", "salmon"}, 208, 20, 0, 13, "Salmão"},
	{[]string{"carne", "beef"}, 250, 26, 0, 15, "Carne de vaca"},
	{[]string{"porco", "pork"}, 242, 27, 0, 14, "Carne de porco"},
	{[]string{"banana"}, 89, 1.1, 23, 0.3, "Banana"},
	{[]string{"maca", "apple"}, 52, 0.3, 14, 0.2, "Maçã"},
	{[]string{"aveia", "oats"}, 389, 17, 66, 7, "Aveia"},
	{[]string{"acucar", "sugar"}, 387, 0, 100, 0, "Açúcar"},
	{[]string{"farinha", "flour"}, 364, 10, 76, 1, "Farinha de trigo"},
}

type stapleKey struct {
	key   string
	entry *stapleEntry
}

// 依鍵長度遞減，"batata doce" 先於 "batata"
var stapleIndex = buildStapleIndex()

func buildStapleIndex() []stapleKey {
	var idx []stapleKey
	for i := range staples {
		for _, k := range staples[i].keys {
			idx = append(idx, stapleKey{key: k, entry: &staples[i]})
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(idx[a].key) > len(idx[b].key)
	})
	return idx
}

// StapleLookup 固定表查詢，零延遲
type StapleLookup struct{}

// Name 來源名稱
func (StapleLookup) Name() string { return SourceStaple }

// Lookup 鍵出現在詞首即命中（"ovos" 命中 "ovo"，"sal" 不命中 "salmao"）
func (StapleLookup) Lookup(_ context.Context, term string) (*FoodItem, error) {
	padded := " " + common.NormalizeText(term)
	if strings.TrimSpace(padded) == "" {
		return nil, nil
	}
	for _, sk := range stapleIndex {
		if strings.Contains(padded, " "+sk.key) {
			e := sk.entry
			return &FoodItem{
				Name:            e.fullName,
				CaloriesPer100g: e.kcal,
				ProteinPer100g:  e.protein,
				CarbsPer100g:    e.carbs,
				FatPer100g:      e.fat,
				Source:          SourceStaple,
			}, nil
		}
	}
	return nil, nil
}
