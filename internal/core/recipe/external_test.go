package recipe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"nutrition-api/internal/core/ai/llm/llmtest"
	"nutrition-api/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memorySource 記憶體中的食譜資料庫
type memorySource struct {
	mu      sync.Mutex
	meals   map[string]*Meal
	down    bool
	lookups []string
}

func newMemorySource(meals ...*Meal) *memorySource {
	s := &memorySource{meals: make(map[string]*Meal)}
	for _, m := range meals {
		s.meals[m.ID] = m
	}
	return s
}

func (s *memorySource) SearchByName(_ context.Context, name string) ([]Meal, error) {
	if s.down {
		return nil, errors.New("connection refused")
	}
	var out []Meal
	q := strings.ToLower(name)
	for _, id := range s.sortedIDs() {
		m := s.meals[id]
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memorySource) FilterByIngredient(_ context.Context, ingredient string) ([]Meal, error) {
	if s.down {
		return nil, errors.New("connection refused")
	}
	var out []Meal
	for _, id := range s.sortedIDs() {
		m := s.meals[id]
		for _, ing := range m.Ingredients {
			if strings.Contains(strings.ToLower(ing), ingredient) {
				out = append(out, Meal{ID: m.ID, Name: m.Name})
				break
			}
		}
	}
	return out, nil
}

func (s *memorySource) LookupMeal(_ context.Context, id string) (*Meal, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, id)
	s.mu.Unlock()
	if s.down {
		return nil, errors.New("connection refused")
	}
	m, ok := s.meals[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *memorySource) sortedIDs() []string {
	ids := make([]string, 0, len(s.meals))
	for id := range s.meals {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// fixedCalculator 每個食材固定熱量
type fixedCalculator struct {
	perIngredient int
	calls         int
}

func (f *fixedCalculator) CalculateCalories(_ context.Context, ingredients []string) int {
	f.calls++
	return f.perIngredient * len(ingredients)
}

func testMealDBConfig() config.MealDBConfig {
	return config.MealDBConfig{
		Enabled:        true,
		MaxDetails:     14,
		MaxFilterTerms: 6,
		TopK:           6,
		MaxSteps:       12,
		Concurrency:    4,
	}
}

func sushiMeals() []*Meal {
	return []*Meal{
		{ID: "1", Name: "Sushi", Instructions: "Cook rice.\nRoll with nori.", Ingredients: []string{"300g sushi rice", "4 sheets nori", "200g salmon"}},
		{ID: "2", Name: "Salmon Teriyaki", Instructions: "Grill salmon.", Ingredients: []string{"2 salmon fillets", "soy sauce"}},
		{ID: "3", Name: "Beef Stew", Instructions: "Stew.", Ingredients: []string{"1kg beef", "carrots"}},
	}
}

func TestExternalFinder_ReturnsBestMatchWithLocalCalories(t *testing.T) {
	src := newMemorySource(sushiMeals()...)
	calc := &fixedCalculator{perIngredient: 150}
	finder := NewExternalFinder(src, calc, nil, testMealDBConfig())

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "sushi", TargetCalories: 600})
	require.NotNil(t, res)
	assert.Equal(t, SourceExternal, res.Source)
	assert.Equal(t, "sushi", res.RestaurantSearchTerm)
	assert.Equal(t, externalMessage, res.Message)
	assert.Equal(t, "Sushi", res.Recipe.Title)
	assert.Equal(t, 450, res.Recipe.Calories)
	assert.Equal(t, externalTimeMinutes, res.Recipe.TimeMinutes)
	assert.Equal(t, []string{"Cook rice.", "Roll with nori."}, res.Recipe.Steps)
}

func TestExternalFinder_ZeroCaloriesFallsBackToTarget(t *testing.T) {
	src := newMemorySource(sushiMeals()...)
	finder := NewExternalFinder(src, &fixedCalculator{}, nil, testMealDBConfig())

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "sushi", TargetCalories: 180})
	require.NotNil(t, res)
	assert.Equal(t, minExternalCalories, res.Recipe.Calories)

	res = finder.Find(context.Background(), NegotiateRequest{Craving: "sushi", TargetCalories: 700})
	require.NotNil(t, res)
	assert.Equal(t, 700, res.Recipe.Calories)
}

func TestExternalFinder_ExcludesAllergens(t *testing.T) {
	meals := []*Meal{
		{ID: "10", Name: "Chocolate Peanut Cake", Instructions: "Bake.", Ingredients: []string{"200g chocolate", "100g amendoim torrado", "2 eggs"}},
		{ID: "11", Name: "Chocolate Cake", Instructions: "Bake.", Ingredients: []string{"200g chocolate", "2 eggs", "flour"}},
	}
	src := newMemorySource(meals...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 100}, nil, testMealDBConfig())

	req := NegotiateRequest{Craving: "bolo de chocolate com amendoim", TargetCalories: 600}
	res := finder.Find(context.Background(), req)
	require.NotNil(t, res)
	assert.Equal(t, "Chocolate Peanut Cake", res.Recipe.Title)

	req.Allergens = []string{"Amendoim"}
	res = finder.Find(context.Background(), req)
	require.NotNil(t, res)
	assert.Equal(t, "Chocolate Cake", res.Recipe.Title)
	for _, ing := range res.Recipe.Ingredients {
		assert.NotContains(t, strings.ToLower(ing), "amendoim")
	}
}

func TestExternalFinder_ExcludesEnglishIngredientsForPortugueseAllergens(t *testing.T) {
	meals := []*Meal{
		{ID: "10", Name: "Chocolate Peanut Cake", Instructions: "Bake.", Ingredients: []string{"200g Chocolate", "100g Peanuts", "2 Eggs"}},
		{ID: "11", Name: "Chocolate Cake", Instructions: "Bake.", Ingredients: []string{"200g Chocolate", "2 Eggs", "Flour"}},
	}
	src := newMemorySource(meals...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 100}, nil, testMealDBConfig())

	req := NegotiateRequest{Craving: "bolo de chocolate", TargetCalories: 600, Allergens: []string{"Amendoim"}}
	res := finder.Find(context.Background(), req)
	require.NotNil(t, res)
	assert.Equal(t, "Chocolate Cake", res.Recipe.Title)

	req.Allergens = []string{"Amendoim", "Ovos"}
	assert.Nil(t, finder.Find(context.Background(), req))
}

func TestExternalFinder_RechecksAllergensAfterTranslation(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(
		`{"title": "Massa com pesto", "ingredients": ["200g massa", "50g pinhões", "manjericão"], "steps": ["Coze a massa."]}`,
	), nil).Once()

	cfg := testMealDBConfig()
	cfg.Translate = true
	src := newMemorySource(&Meal{ID: "20", Name: "Pesto Pasta", Instructions: "Boil pasta.", Ingredients: []string{"200g pasta", "50g pine nuts", "basil"}})
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 200}, NewTranslator(m, ""), cfg)

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "pesto pasta", TargetCalories: 600, Allergens: []string{"Pinhões"}})
	assert.Nil(t, res)
	m.AssertExpectations(t)
}

func TestExternalFinder_AllergenFilterIsMonotonic(t *testing.T) {
	meals := []*Meal{
		{ID: "1", Name: "Chicken Rice", Instructions: "Cook.", Ingredients: []string{"chicken", "rice", "butter"}},
		{ID: "2", Name: "Chicken Salad", Instructions: "Mix.", Ingredients: []string{"chicken", "lettuce", "peanuts"}},
	}
	src := newMemorySource(meals...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 200}, nil, testMealDBConfig())

	allergenSets := [][]string{nil, {"peanut"}, {"peanut", "butter"}}
	prevFound := true
	for _, allergens := range allergenSets {
		res := finder.Find(context.Background(), NegotiateRequest{Craving: "chicken", TargetCalories: 600, Allergens: allergens})
		found := res != nil
		assert.False(t, found && !prevFound, "adding allergens must never make results appear")
		prevFound = found
		if res != nil {
			assert.False(t, ContainsAllergen(res.Recipe.Ingredients, allergens))
		}
	}
	assert.False(t, prevFound)
}

func TestExternalFinder_NoSemanticMatch(t *testing.T) {
	src := newMemorySource(sushiMeals()...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 100}, nil, testMealDBConfig())

	assert.Nil(t, finder.Find(context.Background(), NegotiateRequest{Craving: "francesinha", TargetCalories: 600}))
	assert.Nil(t, finder.Find(context.Background(), NegotiateRequest{Craving: "de um", TargetCalories: 600}))
}

func TestExternalFinder_ProviderDownReturnsNil(t *testing.T) {
	src := newMemorySource(sushiMeals()...)
	src.down = true
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 100}, nil, testMealDBConfig())

	assert.Nil(t, finder.Find(context.Background(), NegotiateRequest{Craving: "sushi", TargetCalories: 600}))
}

func TestExternalFinder_BoundsDetailLookups(t *testing.T) {
	var meals []*Meal
	for i := 0; i < 30; i++ {
		id := string(rune('A' + i))
		meals = append(meals, &Meal{ID: id, Name: "Chicken " + id, Instructions: "Cook.", Ingredients: []string{"chicken"}})
	}
	src := newMemorySource(meals...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 600}, nil, testMealDBConfig())

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "chicken", TargetCalories: 600})
	require.NotNil(t, res)
	assert.Len(t, src.lookups, 14)
}

func TestExternalFinder_PrefersCalorieAlignmentOnTies(t *testing.T) {
	meals := []*Meal{
		{ID: "1", Name: "Pasta Bake", Instructions: "Bake.", Ingredients: []string{"pasta", "a", "b", "c", "d", "e", "f", "g"}},
		{ID: "2", Name: "Pasta Light", Instructions: "Boil.", Ingredients: []string{"pasta", "a", "b"}},
	}
	src := newMemorySource(meals...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 200}, nil, testMealDBConfig())

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "pasta", TargetCalories: 600})
	require.NotNil(t, res)
	assert.Equal(t, "Pasta Light", res.Recipe.Title)
}

func TestExternalFinder_TranslatesWhenEnabled(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(
		`{"title": "Sushi caseiro", "ingredients": ["300g arroz para sushi", "4 folhas de nori", "200g salmão"], "steps": ["Coze o arroz.", "Enrola com nori."]}`,
	), nil).Once()

	cfg := testMealDBConfig()
	cfg.Translate = true
	src := newMemorySource(sushiMeals()...)
	finder := NewExternalFinder(src, &fixedCalculator{perIngredient: 150}, NewTranslator(m, ""), cfg)

	res := finder.Find(context.Background(), NegotiateRequest{Craving: "sushi", TargetCalories: 600})
	require.NotNil(t, res)
	assert.Equal(t, "Sushi caseiro", res.Recipe.Title)
	assert.Equal(t, 450, res.Recipe.Calories)
	assert.Equal(t, "Enrola com nori.", res.Recipe.Steps[1])
	m.AssertExpectations(t)
}

func TestExternalFinder_NilFinder(t *testing.T) {
	var finder *ExternalFinder
	assert.Nil(t, finder.Find(context.Background(), NegotiateRequest{Craving: "sushi"}))
}
