package terms

import (
	"context"
	"fmt"
	"strings"

	"flipscan/internal/llm"
)

// Meaning is one reading of an ambiguous term, with the query strings
// that would fetch comparables for that reading only.
type Meaning struct {
	Name    string
	Queries []string
}

// Resolution is the outcome of disambiguating one term. An unambiguous
// term passes through with Ambiguous=false and no meanings.
type Resolution struct {
	Term      string
	Ambiguous bool
	Meanings  []Meaning
}

// ambiguityOverrides pins known trouble words to fixed meaning sets so
// they never depend on model judgment.
var ambiguityOverrides = map[string][]Meaning{
	"ram": {
		{Name: "computer memory", Queries: []string{
			"DDR4 RAM memory", "DDR5 RAM memory", "laptop RAM memory", "desktop RAM kit"}},
		{Name: "Dodge Ram truck", Queries: []string{
			"Dodge Ram 1500", "Dodge Ram 2500", "Ram truck parts"}},
	},
	"switch": {
		{Name: "Nintendo Switch console", Queries: []string{
			"Nintendo Switch console", "Nintendo Switch OLED", "Nintendo Switch Lite"}},
		{Name: "network switch", Queries: []string{
			"ethernet network switch", "gigabit network switch", "managed network switch"}},
	},
	"charger": {
		{Name: "device charger", Queries: []string{
			"phone charger", "USB-C charger", "laptop charger"}},
		{Name: "Dodge Charger car", Queries: []string{
			"Dodge Charger", "Dodge Charger parts"}},
	},
	"tablet": {
		{Name: "tablet computer", Queries: []string{
			"Android tablet", "Apple iPad tablet", "Samsung Galaxy Tab"}},
		{Name: "drawing tablet", Queries: []string{
			"Wacom drawing tablet", "graphics drawing tablet"}},
	},
}

// Resolver decides whether a raw category term straddles unrelated
// product categories. Known trouble words come from a fixed table; the
// rest go to a deliberately conservative model check.
type Resolver struct {
	text llm.Client
}

func NewResolver(text llm.Client) *Resolver {
	return &Resolver{text: text}
}

const ambiguityPrompt = `Would searching the single term "%s" on a resale marketplace return items from COMPLETELY UNRELATED product categories?

UNRELATED CATEGORIES means entirely different kinds of goods, like a
computer part versus a vehicle. Different BRANDS of the same kind of
product do NOT count.

AMBIGUOUS examples:
- "ram" (computer memory vs. Dodge Ram trucks)
- "charger" (phone chargers vs. Dodge Charger cars)

NOT ambiguous examples:
- "graphics card" (one category, many brands)
- "laptop" (one category, many brands)
- "silver coin" (one category)

Be conservative: when unsure, answer NO.

Respond with:
AMBIGUOUS: YES or NO
MEANINGS: [only if YES, one per line as "meaning name | query1; query2"]`

// Resolve classifies one term. Table hits bypass the oracle entirely.
// An oracle failure or unparseable answer reads as unambiguous, which
// matches the conservative bias of the rest of the pipeline.
func (r *Resolver) Resolve(ctx context.Context, term string) Resolution {
	key := strings.ToLower(strings.TrimSpace(term))
	if meanings, ok := ambiguityOverrides[key]; ok {
		return Resolution{Term: term, Ambiguous: true, Meanings: meanings}
	}
	if r.text == nil {
		return Resolution{Term: term}
	}

	resp, err := r.text.Generate(ctx, fmt.Sprintf(ambiguityPrompt, term))
	if err != nil {
		return Resolution{Term: term}
	}
	ambiguous, meanings := parseAmbiguity(resp)
	if !ambiguous || len(meanings) < 2 {
		// One meaning is no ambiguity at all.
		return Resolution{Term: term}
	}
	return Resolution{Term: term, Ambiguous: true, Meanings: meanings}
}

// ResolveAll maps every term to its resolution, preserving order.
func (r *Resolver) ResolveAll(ctx context.Context, termList []string) []Resolution {
	out := make([]Resolution, 0, len(termList))
	for _, t := range termList {
		out = append(out, r.Resolve(ctx, t))
	}
	return out
}

// parseAmbiguity reads the oracle's loosely formatted answer. Meaning
// lines look like "computer memory | DDR4 RAM; DDR5 RAM", with list
// markers tolerated.
func parseAmbiguity(resp string) (bool, []Meaning) {
	ambiguous := false
	var meanings []Meaning
	inMeanings := false
	for i, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "AMBIGUOUS:"):
			val := strings.ToUpper(strings.TrimSpace(strings.SplitN(line, ":", 2)[1]))
			ambiguous = val == "YES" || val == "TRUE"
		case i == 0 && (upper == "YES" || upper == "NO"):
			ambiguous = upper == "YES"
		case strings.HasPrefix(upper, "MEANINGS:"):
			inMeanings = true
			if rest := strings.TrimSpace(strings.SplitN(line, ":", 2)[1]); rest != "" {
				if m, ok := parseMeaningLine(rest); ok {
					meanings = append(meanings, m)
				}
			}
		case inMeanings && line != "":
			if m, ok := parseMeaningLine(strings.TrimLeft(line, "•-*0123456789. ")); ok {
				meanings = append(meanings, m)
			}
		}
	}
	return ambiguous, meanings
}

func parseMeaningLine(line string) (Meaning, bool) {
	parts := strings.SplitN(line, "|", 2)
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Meaning{}, false
	}
	m := Meaning{Name: name}
	if len(parts) == 2 {
		for _, q := range strings.Split(parts[1], ";") {
			if q = strings.TrimSpace(q); q != "" {
				m.Queries = append(m.Queries, q)
			}
		}
	}
	if len(m.Queries) == 0 {
		m.Queries = []string{name}
	}
	return m, true
}
