// Package match decides whether a marketplace listing and a sold
// comparable are the same product. The verdict gates which comparables
// enter the price statistics.
package match

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flipscan/internal/llm"
)

// Candidate is one side of a comparison.
type Candidate struct {
	Title       string
	Description string
	ImageURL    string
	Price       float64
}

// Verdict is the outcome of one comparison.
type Verdict struct {
	IsMatch    bool
	Confidence float64
	LocalItem  string // synthesized identity of the local listing
	SoldItem   string // synthesized identity of the sold comparable
	Reasoning  string
	Method     string // "llm" or "overlap"
}

func (v Verdict) String() string {
	status := "NO MATCH"
	if v.IsMatch {
		status = "MATCH"
	}
	return fmt.Sprintf("%s (%.0f%%) %s", status, v.Confidence*100, v.Reasoning)
}

// multiImageModel is implemented by clients that can attach several
// images to one prompt.
type multiImageModel interface {
	GenerateWithImages(ctx context.Context, prompt string, imageURLs []string) (string, error)
}

// Verifier compares listings through a model, with a word-overlap
// fallback when the model is unavailable or fails.
type Verifier struct {
	model     llm.Client
	threshold float64
}

// NewVerifier builds a verifier. A verdict needs confidence strictly
// above threshold to count as a match.
func NewVerifier(model llm.Client, threshold float64) *Verifier {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &Verifier{model: model, threshold: threshold}
}

const comparePrompt = `You are an expert at identifying products and determining if two listings are for the same item.

=== LOCAL MARKETPLACE LISTING ===
Title: %s
Description: %s
%s

=== SOLD LISTING ===
Title: %s
%s
%s

Based on ALL available information (titles, descriptions, and images), determine:

1. SYNTHESIZE: What specific product is the local listing selling? (brand, model, variant, condition)
2. SYNTHESIZE: What specific product is the sold listing showing? (brand, model, variant, condition)
3. MATCH PROBABILITY: What is the probability (0-100%%) that these are the SAME or BASICALLY THE SAME item?
   - "Same" means: same brand, same model/product line, same general type
   - Minor differences in color, condition, or accessories are OK
   - Different models/generations are NOT the same (e.g., iPhone 14 vs iPhone 15)

Respond in this EXACT format:
LOCAL_ITEM: [what the local listing is selling]
SOLD_ITEM: [what the sold listing is showing]
PROBABILITY: [0-100]
REASONING: [one sentence explaining your judgment]`

// Compare runs the full comparison. Model failure or unparseable output
// falls back to the word-overlap heuristic instead of erroring, so a
// flaky model degrades gracefully rather than stalling the scan.
func (v *Verifier) Compare(ctx context.Context, local, sold Candidate) Verdict {
	if v.model == nil {
		return v.overlap(local.Title, sold.Title)
	}

	prompt := buildComparePrompt(local, sold)
	resp, err := v.generate(ctx, prompt, local.ImageURL, sold.ImageURL)
	if err != nil || strings.TrimSpace(resp) == "" {
		return v.overlap(local.Title, sold.Title)
	}

	verdict, ok := parseVerdict(resp, v.threshold)
	if !ok {
		return v.overlap(local.Title, sold.Title)
	}
	return verdict
}

func buildComparePrompt(local, sold Candidate) string {
	localImg := "(no image)"
	if local.ImageURL != "" {
		localImg = "[Image attached below]"
	}
	soldImg := "(no image)"
	if sold.ImageURL != "" {
		soldImg = "[Image attached below]"
	}
	soldPrice := ""
	if sold.Price > 0 {
		soldPrice = fmt.Sprintf("Sold Price: $%.2f", sold.Price)
	}
	desc := local.Description
	if desc == "" {
		desc = "(no description)"
	}
	return fmt.Sprintf(comparePrompt, local.Title, desc, localImg, sold.Title, soldPrice, soldImg)
}

func (v *Verifier) generate(ctx context.Context, prompt, localImg, soldImg string) (string, error) {
	var urls []string
	for _, u := range []string{localImg, soldImg} {
		if u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) > 1 {
		if mi, ok := v.model.(multiImageModel); ok {
			return mi.GenerateWithImages(ctx, prompt, urls)
		}
	}
	if len(urls) > 0 {
		resp, err := v.model.GenerateWithImage(ctx, prompt, urls[0])
		if err == nil {
			return resp, nil
		}
		// Text-only models still get a say on the titles.
	}
	return v.model.Generate(ctx, prompt)
}

var probabilityRe = regexp.MustCompile(`(\d+)`)

// parseVerdict reads the labeled response. A response carrying no
// PROBABILITY line is unusable.
func parseVerdict(resp string, threshold float64) (Verdict, bool) {
	verdict := Verdict{Method: "llm"}
	sawProbability := false
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "LOCAL_ITEM:"):
			verdict.LocalItem = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		case strings.HasPrefix(line, "SOLD_ITEM:"):
			verdict.SoldItem = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		case strings.HasPrefix(line, "PROBABILITY:"):
			if m := probabilityRe.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				verdict.Confidence = float64(n) / 100.0
				sawProbability = true
			}
		case strings.HasPrefix(line, "REASONING:"):
			verdict.Reasoning = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		}
	}
	if !sawProbability {
		return Verdict{}, false
	}
	verdict.IsMatch = verdict.Confidence > threshold
	if verdict.Reasoning == "" {
		verdict.Reasoning = fmt.Sprintf("match probability %.0f%%", verdict.Confidence*100)
	}
	return verdict, true
}

var overlapStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"for": true, "with": true, "in": true, "on": true, "-": true, "|": true,
}

// overlap is the no-model heuristic: Jaccard similarity over title
// words with stopwords removed.
func (v *Verifier) overlap(localTitle, soldTitle string) Verdict {
	localWords := contentWords(localTitle)
	soldWords := contentWords(soldTitle)
	if len(localWords) == 0 || len(soldWords) == 0 {
		return Verdict{
			Method:    "overlap",
			LocalItem: localTitle,
			SoldItem:  soldTitle,
			Reasoning: "cannot compare: insufficient data",
		}
	}

	intersection := 0
	union := len(soldWords)
	for w := range localWords {
		if soldWords[w] {
			intersection++
		} else {
			union++
		}
	}
	confidence := float64(intersection) / float64(union)
	return Verdict{
		IsMatch:    confidence > v.threshold,
		Confidence: confidence,
		LocalItem:  localTitle,
		SoldItem:   soldTitle,
		Reasoning:  fmt.Sprintf("word overlap %d/%d", intersection, union),
		Method:     "overlap",
	}
}

func contentWords(title string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(title)) {
		if !overlapStopwords[w] {
			words[w] = true
		}
	}
	return words
}
