package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"flipscan/internal/llm"
)

func TestCompareParsesLabeledVerdict(t *testing.T) {
	model := llm.NewFakeClient().Respond("MATCH PROBABILITY",
		"LOCAL_ITEM: Nintendo Switch OLED White\nSOLD_ITEM: Nintendo Switch OLED\nPROBABILITY: 90%\nREASONING: same console, same variant")
	v := NewVerifier(model, 0.6)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "Nintendo Switch OLED White Must Sell"},
		Candidate{Title: "Nintendo Switch OLED Console", Price: 250})

	require.True(t, verdict.IsMatch)
	require.InDelta(t, 0.9, verdict.Confidence, 0.001)
	require.Equal(t, "llm", verdict.Method)
	require.Equal(t, "Nintendo Switch OLED White", verdict.LocalItem)
	require.Equal(t, "same console, same variant", verdict.Reasoning)
}

func TestCompareBelowThresholdIsNoMatch(t *testing.T) {
	model := llm.NewFakeClient().Respond("MATCH PROBABILITY",
		"LOCAL_ITEM: iPhone 14\nSOLD_ITEM: iPhone 15\nPROBABILITY: 30\nREASONING: different generations")
	v := NewVerifier(model, 0.6)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "iPhone 14"}, Candidate{Title: "iPhone 15"})
	require.False(t, verdict.IsMatch)
	require.InDelta(t, 0.3, verdict.Confidence, 0.001)
}

func TestCompareExactThresholdIsNoMatch(t *testing.T) {
	model := llm.NewFakeClient().Respond("MATCH PROBABILITY", "PROBABILITY: 60")
	v := NewVerifier(model, 0.6)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "a"}, Candidate{Title: "b"})
	require.False(t, verdict.IsMatch)
}

func TestCompareFallsBackOnModelError(t *testing.T) {
	model := llm.NewFakeClient()
	model.Err = errors.New("model down")
	v := NewVerifier(model, 0.5)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "EVGA RTX 3080 FTW3 Ultra"},
		Candidate{Title: "EVGA RTX 3080 FTW3 Ultra graphics card"})

	require.Equal(t, "overlap", verdict.Method)
	require.True(t, verdict.IsMatch)
}

func TestCompareFallsBackOnUnparseableResponse(t *testing.T) {
	model := llm.NewFakeClient()
	model.Default = "these look pretty similar to me"
	v := NewVerifier(model, 0.5)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "iPhone 13 Pro"}, Candidate{Title: "Samsung vacuum"})
	require.Equal(t, "overlap", verdict.Method)
	require.False(t, verdict.IsMatch)
}

func TestCompareSendsBothImages(t *testing.T) {
	model := llm.NewFakeClient().Respond("MATCH PROBABILITY", "PROBABILITY: 80")
	v := NewVerifier(model, 0.5)

	v.Compare(context.Background(),
		Candidate{Title: "x", ImageURL: "http://img/local.jpg"},
		Candidate{Title: "y", ImageURL: "http://img/sold.jpg"})

	require.Equal(t, []string{"http://img/local.jpg", "http://img/sold.jpg"}, model.ImageURLs)
}

func TestOverlapHeuristic(t *testing.T) {
	v := NewVerifier(nil, 0.5)

	verdict := v.Compare(context.Background(),
		Candidate{Title: "Nintendo Switch OLED"},
		Candidate{Title: "Nintendo Switch OLED"})
	require.True(t, verdict.IsMatch)
	require.InDelta(t, 1.0, verdict.Confidence, 0.001)

	verdict = v.Compare(context.Background(),
		Candidate{Title: "Nintendo Switch"},
		Candidate{Title: "office chair"})
	require.False(t, verdict.IsMatch)

	verdict = v.Compare(context.Background(), Candidate{}, Candidate{Title: "x"})
	require.False(t, verdict.IsMatch)
	require.Equal(t, 0.0, verdict.Confidence)
}
