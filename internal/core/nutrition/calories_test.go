package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"nutrition-api/internal/core/ai/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	name  string
	calls int32
	fn    func(ctx context.Context, term string) (*FoodItem, error)
}

func (f *fakeLookup) Name() string { return f.name }

func (f *fakeLookup) Lookup(ctx context.Context, term string) (*FoodItem, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(ctx, term)
}

func (f *fakeLookup) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func emptyLookup(name string) *fakeLookup {
	return &fakeLookup{name: name, fn: func(context.Context, string) (*FoodItem, error) { return nil, nil }}
}

type fakeEstimator struct {
	total int
	err   error
	got   []string
}

func (f *fakeEstimator) EstimateCalories(_ context.Context, ingredients []string) (int, error) {
	f.got = ingredients
	return f.total, f.err
}

func TestCalculateCalories_StaplesWithUnknownIngredient(t *testing.T) {
	remote := emptyLookup("remote")
	calc := NewCalculator([]Lookup{StapleLookup{}, remote}, testHeuristics(), time.Second, nil)

	total := calc.CalculateCalories(context.Background(), []string{"200g arroz", "1 ovo", "sal"})

	// 130*2 + 155*0.8 + 0
	assert.Equal(t, 384, total)
	assert.Equal(t, 1, remote.Calls(), "only 'sal' should reach the remote provider")
}

func TestCalculateCalories_GramLinesMatchStapleExactly(t *testing.T) {
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, nil)

	for _, e := range staples {
		for _, grams := range []int{50, 100, 237} {
			raw := fmt.Sprintf("%dg %s", grams, e.keys[0])
			report := calc.Calculate(context.Background(), []string{raw})
			require.Len(t, report.Lines, 1)
			assert.InDelta(t, e.kcal*float64(grams)/100, report.Lines[0].Calories, 1e-9, raw)
		}
	}
}

func TestCalculateCalories_RemoteLookupUsedAfterStaples(t *testing.T) {
	remote := &fakeLookup{name: "remote", fn: func(_ context.Context, term string) (*FoodItem, error) {
		if term == "quinoa" {
			return &FoodItem{Name: "Quinoa", CaloriesPer100g: 120, Source: "remote"}, nil
		}
		return nil, nil
	}}
	calc := NewCalculator([]Lookup{StapleLookup{}, remote}, testHeuristics(), time.Second, nil)

	report := calc.Calculate(context.Background(), []string{"150g quinoa", "100g frango"})
	assert.Equal(t, 345, report.Total)
	assert.False(t, report.Estimated)
	require.NotNil(t, report.Lines[0].Item)
	assert.Equal(t, "remote", report.Lines[0].Item.Source)
	assert.Equal(t, SourceStaple, report.Lines[1].Item.Source)
}

func TestCalculateCalories_ZeroCaloriesFallsThroughToNextProvider(t *testing.T) {
	first := &fakeLookup{name: "first", fn: func(context.Context, string) (*FoodItem, error) {
		return &FoodItem{Name: "agua", CaloriesPer100g: 0}, nil
	}}
	second := &fakeLookup{name: "second", fn: func(context.Context, string) (*FoodItem, error) {
		return &FoodItem{Name: "lentilhas", CaloriesPer100g: 116}, nil
	}}
	calc := NewCalculator([]Lookup{first, second}, testHeuristics(), time.Second, nil)

	assert.Equal(t, 116, calc.CalculateCalories(context.Background(), []string{"100g lentilhas"}))
}

func TestCalculateCalories_TimeoutDisablesProviderForAggregation(t *testing.T) {
	slow := &fakeLookup{name: "slow", fn: func(ctx context.Context, _ string) (*FoodItem, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	backup := &fakeLookup{name: "backup", fn: func(context.Context, string) (*FoodItem, error) {
		return &FoodItem{Name: "x", CaloriesPer100g: 100}, nil
	}}
	calc := NewCalculator([]Lookup{slow, backup}, testHeuristics(), 20*time.Millisecond, nil)

	total := calc.CalculateCalories(context.Background(), []string{"100g a1", "100g b2", "100g c3"})

	assert.Equal(t, 300, total)
	assert.Equal(t, 1, slow.Calls(), "a timed out provider must not be retried per item")
	assert.Equal(t, 3, backup.Calls())

	// 新的彙總重新啟用來源
	calc.CalculateCalories(context.Background(), []string{"100g d4"})
	assert.Equal(t, 2, slow.Calls())
}

func TestCalculateCalories_LookupErrorsAreSwallowed(t *testing.T) {
	broken := &fakeLookup{name: "broken", fn: func(_ context.Context, term string) (*FoodItem, error) {
		if strings.Contains(term, "pimenta") {
			return nil, errors.New("boom")
		}
		return nil, nil
	}}
	calc := NewCalculator([]Lookup{broken, StapleLookup{}}, testHeuristics(), time.Second, nil)

	total := calc.CalculateCalories(context.Background(), []string{"q.b. pimenta", "100g arroz"})
	assert.Equal(t, 130, total)
	assert.Equal(t, 2, broken.Calls())
}

func TestCalculateCalories_PanickingLookupContributesZero(t *testing.T) {
	panicky := &fakeLookup{name: "panicky", fn: func(_ context.Context, term string) (*FoodItem, error) {
		if term == "cogumelos" {
			panic("unexpected shape")
		}
		return nil, nil
	}}
	calc := NewCalculator([]Lookup{panicky, StapleLookup{}}, testHeuristics(), time.Second, nil)

	report := calc.Calculate(context.Background(), []string{"100g cogumelos", "100g arroz"})
	assert.Equal(t, 130, report.Total)
	assert.Equal(t, 0.0, report.Lines[0].Calories)
}

func TestCalculateCalories_FallsBackToEstimator(t *testing.T) {
	est := &fakeEstimator{total: 450}
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, est)

	ingredients := []string{"1 kombucha", "2 tempeh"}
	report := calc.Calculate(context.Background(), ingredients)

	assert.Equal(t, 450, report.Total)
	assert.True(t, report.Estimated)
	assert.Equal(t, ingredients, est.got)
}

func TestCalculateCalories_EstimatorFailureReturnsZero(t *testing.T) {
	est := &fakeEstimator{err: errors.New("llm down")}
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, est)

	assert.Equal(t, 0, calc.CalculateCalories(context.Background(), []string{"sal"}))
}

func TestCalculateCalories_EstimatorSkippedWhenLookupSucceeds(t *testing.T) {
	est := &fakeEstimator{total: 999}
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, est)

	assert.Equal(t, 130, calc.CalculateCalories(context.Background(), []string{"100g arroz"}))
	assert.Nil(t, est.got)
}

func TestCalculateCalories_Deterministic(t *testing.T) {
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, nil)
	ingredients := []string{"2 colheres de azeite", "300g batata doce", "1/2 chávena de leite", "sal q.b."}

	first := calc.CalculateCalories(context.Background(), ingredients)
	assert.GreaterOrEqual(t, first, 0)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, calc.CalculateCalories(context.Background(), ingredients))
	}
}

func TestCalculateCalories_EmptyList(t *testing.T) {
	est := &fakeEstimator{total: 100}
	calc := NewCalculator([]Lookup{StapleLookup{}}, testHeuristics(), time.Second, est)

	assert.Equal(t, 0, calc.CalculateCalories(context.Background(), nil))
	assert.Nil(t, est.got)
}

func TestAIEstimator_CapsIngredientList(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(`{"total_calories": 812.6}`), nil).Once()

	ingredients := make([]string, 40)
	for i := range ingredients {
		ingredients[i] = fmt.Sprintf("ingrediente %d", i)
	}

	total, err := NewAIEstimator(m, 30).EstimateCalories(context.Background(), ingredients)
	require.NoError(t, err)
	assert.Equal(t, 813, total)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[1].Content.(string)
	assert.Contains(t, prompt, "ingrediente 29")
	assert.NotContains(t, prompt, "ingrediente 30")
	assert.True(t, reqs[0].JSONMode)
	m.AssertExpectations(t)
}

func TestAIEstimator_MalformedResponse(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(`não sei`), nil).Once()

	total, err := NewAIEstimator(m, 30).EstimateCalories(context.Background(), []string{"algo"})
	assert.Error(t, err)
	assert.Equal(t, 0, total)
}
