package rewriter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRewriter(t *testing.T) {
	text := "Our new Eco-Friendly product line is 100% natural and biodegradable. It is non-toxic."

	got, err := NewTableRewriter(nil).Rewrite(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, text, got.Before)
	assert.Equal(t, "Our new made with 30% recycled materials product line is made with plant-derived ingredients and breaks down in industrial composting facilities within 90 days. It is meets EPA safety standards for household use.", got.After)
	require.Len(t, got.Changes, 4)
	assert.Equal(t, "Eco-Friendly", got.Changes[0].OriginalPhrase)
	assert.Equal(t, 60, got.ImprovementScore)
	assert.Equal(t, MethodLocal, got.Method)
}

func TestTableRewriterWholeWordOnly(t *testing.T) {
	got, err := NewTableRewriter(nil).Rewrite(context.Background(), "Nonbiodegradableness is not a word we use.")
	require.NoError(t, err)

	assert.Equal(t, got.Before, got.After)
	assert.Empty(t, got.Changes)
	assert.Equal(t, 0, got.ImprovementScore)
}

func TestTableRewriterScoreCapped(t *testing.T) {
	text := "eco-friendly eco-friendly eco-friendly eco-friendly biodegradable planet-safe non-toxic chemical-free"

	got, err := NewTableRewriter(nil).Rewrite(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, 100, got.ImprovementScore)
}

func TestParseAdaptation(t *testing.T) {
	a, err := ParseAdaptation("```json\n{\"before\":\"x\",\"after\":\"y\",\"improvement_score\":140}\n```")
	require.NoError(t, err)
	assert.Equal(t, "y", a.After)
	assert.Equal(t, 100, a.ImprovementScore)
	assert.NotNil(t, a.Changes)

	_, err = ParseAdaptation(`{"before":"x","after":""}`)
	assert.ErrorIs(t, err, ErrParseFailure)

	_, err = ParseAdaptation("no")
	assert.ErrorIs(t, err, ErrParseFailure)
}

type stubLLM struct {
	out string
	err error
}

func (s stubLLM) Generate(ctx context.Context, prompt string) (string, error) { return s.out, s.err }

func (s stubLLM) GenerateWithSystem(ctx context.Context, system, user string) (string, error) {
	return s.out, s.err
}

func (s stubLLM) ModelName() string { return "stub" }

func TestFallbackRewriter(t *testing.T) {
	text := "A planet-safe bottle."

	t.Run("primary succeeds", func(t *testing.T) {
		primary := NewLLMRewriter(stubLLM{out: `{"after":"A bottle with 40% less plastic.","changes":[{"original_phrase":"planet-safe","new_phrase":"40% less plastic","reason":"specific"}],"improvement_score":80}`})
		fr := NewFallbackRewriter(primary, NewTableRewriter(nil), nil, nil)

		got, err := fr.Rewrite(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, MethodLLM, got.Method)
		assert.Equal(t, text, got.Before)
		assert.Equal(t, 80, got.ImprovementScore)
		assert.Empty(t, got.Error)
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := NewLLMRewriter(stubLLM{err: errors.New("status 503")})
		fr := NewFallbackRewriter(primary, NewTableRewriter(nil), nil, nil)

		got, err := fr.Rewrite(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, MethodLocal, got.Method)
		assert.Equal(t, "A designed to minimize environmental impact bottle.", got.After)
		assert.Contains(t, got.Error, "status 503")
	})

	t.Run("primary unconfigured", func(t *testing.T) {
		fr := NewFallbackRewriter(NewLLMRewriter(nil), NewTableRewriter(nil), nil, nil)

		got, err := fr.Rewrite(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, MethodLocal, got.Method)
		assert.Empty(t, got.Error)
		assert.Equal(t, MethodLocal, fr.Method())
	})
}

