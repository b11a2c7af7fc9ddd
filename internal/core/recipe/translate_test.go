package recipe

import (
	"context"
	"errors"
	"testing"

	"nutrition-api/internal/core/ai/llm/llmtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleRecipe() *Recipe {
	return &Recipe{
		Title:       "Chicken Curry",
		Calories:    540,
		TimeMinutes: 35,
		Ingredients: []string{"2 chicken breasts", "1 onion"},
		Steps:       []string{"Fry the onion.", "Add chicken."},
	}
}

func TestTranslator_TranslatesTextFields(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(
		"```json\n{\"title\": \"Caril de frango\", \"ingredients\": [\"2 peitos de frango\", \"1 cebola\"], \"steps\": [{\"texto\": \"Aloura a cebola.\"}, \"Junta o frango.\"]}\n```",
	), nil).Once()

	original := sampleRecipe()
	got := NewTranslator(m, "").Translate(context.Background(), original)
	require.NotNil(t, got)

	assert.Equal(t, "Caril de frango", got.Title)
	assert.Equal(t, []string{"2 peitos de frango", "1 cebola"}, got.Ingredients)
	assert.Equal(t, []string{"Aloura a cebola.", "Junta o frango."}, got.Steps)
	assert.Equal(t, 540, got.Calories)
	assert.Equal(t, 35, got.TimeMinutes)
	assert.Equal(t, "Chicken Curry", original.Title)

	req := m.Requests()[0]
	assert.True(t, req.JSONMode)
	assert.Contains(t, userPrompt(t, req), "português de Portugal (PT-PT)")
	assert.Contains(t, userPrompt(t, req), `"title":"Chicken Curry"`)
}

func TestTranslator_KeepsFieldsThatAreNotLists(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply(
		`{"title": "", "ingredients": "2 peitos de frango, 1 cebola", "steps": ["Aloura a cebola."]}`,
	), nil).Once()

	got := NewTranslator(m, "").Translate(context.Background(), sampleRecipe())
	assert.Equal(t, "Chicken Curry", got.Title)
	assert.Equal(t, []string{"2 chicken breasts", "1 onion"}, got.Ingredients)
	assert.Equal(t, []string{"Aloura a cebola."}, got.Steps)
}

func TestTranslator_FailureReturnsOriginal(t *testing.T) {
	m := new(llmtest.MockCompleter)
	m.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("upstream down")).Once()

	original := sampleRecipe()
	assert.Same(t, original, NewTranslator(m, "").Translate(context.Background(), original))

	m2 := new(llmtest.MockCompleter)
	m2.On("Complete", mock.Anything, mock.Anything).Return(llmtest.Reply("desculpa, não consigo"), nil).Once()
	assert.Same(t, original, NewTranslator(m2, "").Translate(context.Background(), original))
}

func TestTranslator_NilSafe(t *testing.T) {
	var tr *Translator
	r := sampleRecipe()
	assert.Same(t, r, tr.Translate(context.Background(), r))
	assert.Nil(t, NewTranslator(nil, "").Translate(context.Background(), nil))
}

func TestStringList(t *testing.T) {
	list, ok := stringList([]byte(`["a", 2, {"action": "mexe"}, {"outro": "x"}, null, " "]`))
	require.True(t, ok)
	assert.Equal(t, []string{"a", "2", "mexe", `{"outro":"x"}`}, list)

	_, ok = stringList([]byte(`"texto"`))
	assert.False(t, ok)
	_, ok = stringList(nil)
	assert.False(t, ok)
}
