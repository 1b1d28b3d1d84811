package terms

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"flipscan/internal/llm"
)

func TestResolveKnownOverride(t *testing.T) {
	r := NewResolver(nil)
	res := r.Resolve(context.Background(), "ram")

	require.True(t, res.Ambiguous)
	require.GreaterOrEqual(t, len(res.Meanings), 2)

	var names []string
	for _, m := range res.Meanings {
		names = append(names, strings.ToLower(m.Name))
		require.NotEmpty(t, m.Queries)
	}
	joined := strings.Join(names, " ")
	require.Contains(t, joined, "memory")
	require.Contains(t, joined, "truck")
}

func TestResolveOverrideIgnoresCase(t *testing.T) {
	r := NewResolver(nil)
	require.True(t, r.Resolve(context.Background(), "  RAM ").Ambiguous)
}

func TestResolveOracleAmbiguous(t *testing.T) {
	text := llm.NewFakeClient().Respond(`"mustang"`,
		"AMBIGUOUS: YES\nMEANINGS:\n- Ford Mustang car | Ford Mustang parts; Ford Mustang wheels\n- Mustang horse tack | mustang saddle; mustang bridle")
	r := NewResolver(text)

	res := r.Resolve(context.Background(), "mustang")
	require.True(t, res.Ambiguous)
	require.Len(t, res.Meanings, 2)
	require.Equal(t, []string{"Ford Mustang parts", "Ford Mustang wheels"}, res.Meanings[0].Queries)
}

func TestResolveOracleConservativeOnGarbage(t *testing.T) {
	text := llm.NewFakeClient()
	text.Default = "I could not decide."
	r := NewResolver(text)

	res := r.Resolve(context.Background(), "graphics card")
	require.False(t, res.Ambiguous)
	require.Empty(t, res.Meanings)
}

func TestResolveOracleSingleMeaningIsNotAmbiguous(t *testing.T) {
	text := llm.NewFakeClient().Respond(`"laptop"`,
		"AMBIGUOUS: YES\nMEANINGS:\n- laptop computer | laptop")
	r := NewResolver(text)

	require.False(t, r.Resolve(context.Background(), "laptop").Ambiguous)
}

func TestExpandIncludesSynonyms(t *testing.T) {
	e := NewExpander("", false)
	got := e.Expand("silver")

	require.Equal(t, "silver", got[0])
	require.Contains(t, got, "sterling silver")
	require.Contains(t, got, "silver bullion")
}

func TestExpandDedupesCaseInsensitively(t *testing.T) {
	e := NewExpander("", false)
	got := e.ExpandAll([]string{"Silver", "silver"})

	seen := map[string]int{}
	for _, v := range got {
		seen[strings.ToLower(v)]++
	}
	for v, n := range seen {
		require.Equal(t, 1, n, "duplicate variant %q", v)
	}
}

func TestGenerateTypos(t *testing.T) {
	typos := GenerateTypos("silver", 3)
	require.NotEmpty(t, typos)
	require.LessOrEqual(t, len(typos), 3)
	for _, typo := range typos {
		require.NotEqual(t, "silver", strings.ToLower(typo))
	}

	require.Empty(t, GenerateTypos("tv", 3))
}

func TestExpandWithTypos(t *testing.T) {
	e := NewExpander("", true)
	got := e.Expand("silver")
	require.Greater(t, len(got), len(NewExpander("", false).Expand("silver")))
}
