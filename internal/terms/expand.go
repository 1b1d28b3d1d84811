// Package terms prepares user category terms for scanning: expansion
// into synonym and misspelling variants, and lexical disambiguation of
// words that straddle unrelated product categories.
package terms

import (
	"encoding/json"
	"os"
	"strings"
)

// defaultExpansions maps base terms to related search variants. Entries
// here can be extended through a custom terms file.
var defaultExpansions = map[string][]string{
	// Precious metals
	"silver": {"sterling silver", "925 silver", ".999 silver", "fine silver",
		"silver bullion", "silver coins", "silver bars"},
	"gold": {"14k gold", "18k gold", "24k gold", "gold bullion", "gold coins",
		"gold bars", "solid gold"},
	"bullion": {"gold bullion", "silver bullion", "platinum bullion",
		"bullion coins", "bullion bars", "precious metals"},
	"sterling": {"sterling silver", "925 sterling", ".925 silver",
		"sterling flatware", "sterling jewelry"},

	// Electronics
	"iphone":  {"iphone pro", "iphone plus", "iphone max", "apple iphone"},
	"ipad":    {"ipad pro", "ipad air", "ipad mini", "apple ipad"},
	"macbook": {"macbook pro", "macbook air", "apple macbook"},
	"airpods": {"airpods pro", "airpods max", "apple airpods"},

	// Gaming
	"nintendo switch": {"switch oled", "switch lite", "nintendo switch oled"},
	"ps5":             {"playstation 5", "playstation 5 digital", "ps5 disc", "ps5 digital"},
	"xbox":            {"xbox series x", "xbox series s", "xbox one"},

	// Collectibles
	"pokemon cards": {"pokemon tcg", "pokemon booster", "pokemon box", "charizard"},
	"sports cards":  {"baseball cards", "football cards", "basketball cards", "topps", "panini"},
}

// LoadCustomExpansions reads user-defined expansions from a JSON file
// mapping term to variant list. A missing or unreadable file yields an
// empty map, never an error.
func LoadCustomExpansions(path string) map[string][]string {
	out := map[string][]string{}
	if path == "" {
		return out
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string][]string{}
	}
	return out
}

// mergedExpansions overlays custom expansions onto the defaults.
func mergedExpansions(custom map[string][]string) map[string][]string {
	merged := make(map[string][]string, len(defaultExpansions))
	for k, v := range defaultExpansions {
		merged[k] = append([]string(nil), v...)
	}
	for term, variants := range custom {
		key := strings.ToLower(term)
		existing := map[string]bool{}
		for _, v := range merged[key] {
			existing[strings.ToLower(v)] = true
		}
		for _, v := range variants {
			if !existing[strings.ToLower(v)] {
				merged[key] = append(merged[key], v)
				existing[strings.ToLower(v)] = true
			}
		}
	}
	return merged
}

// keyboardAdjacent maps each letter to its most common mistype.
var keyboardAdjacent = map[byte]byte{
	'a': 's', 's': 'a', 'd': 's', 'f': 'd', 'g': 'f',
	'q': 'w', 'w': 'q', 'e': 'w', 'r': 'e', 't': 'r',
	'i': 'u', 'o': 'i', 'l': 'o', 'n': 'b', 'm': 'n',
}

// GenerateTypos produces up to max misspellings of a word: adjacent
// letter swaps, dropped letters and keyboard slips. Words shorter than
// four letters generate nothing.
func GenerateTypos(word string, max int) []string {
	if len(word) < 4 {
		return nil
	}
	var typos []string

	// Adjacent swaps (teh -> the)
	for i := 0; i < len(word)-1; i++ {
		t := word[:i] + string(word[i+1]) + string(word[i]) + word[i+2:]
		if t != word {
			typos = append(typos, t)
		}
	}
	// Dropped letters (silvr)
	for i := 1; i < len(word)-1; i++ {
		if t := word[:i] + word[i+1:]; len(t) > 2 {
			typos = append(typos, t)
		}
	}
	// Keyboard slips
	lower := strings.ToLower(word)
	for i := 0; i < len(lower); i++ {
		if adj, ok := keyboardAdjacent[lower[i]]; ok {
			if t := word[:i] + string(adj) + word[i+1:]; t != word {
				typos = append(typos, t)
			}
		}
	}

	seen := map[string]bool{strings.ToLower(word): true}
	var unique []string
	for _, t := range typos {
		k := strings.ToLower(t)
		if !seen[k] {
			seen[k] = true
			unique = append(unique, t)
		}
	}
	if len(unique) > max {
		unique = unique[:max]
	}
	return unique
}

// Expander turns base terms into search variations.
type Expander struct {
	expansions   map[string][]string
	includeTypos bool
}

func NewExpander(customPath string, includeTypos bool) *Expander {
	return &Expander{
		expansions:   mergedExpansions(LoadCustomExpansions(customPath)),
		includeTypos: includeTypos,
	}
}

// Expand returns the term itself, its synonym variants and optionally
// per-word misspellings, deduplicated case-insensitively.
func (e *Expander) Expand(term string) []string {
	variations := []string{term}
	seen := map[string]bool{strings.ToLower(term): true}

	for _, v := range e.expansions[strings.ToLower(strings.TrimSpace(term))] {
		if !seen[strings.ToLower(v)] {
			seen[strings.ToLower(v)] = true
			variations = append(variations, v)
		}
	}

	if e.includeTypos {
		for _, word := range strings.Fields(term) {
			for _, typo := range GenerateTypos(word, 3) {
				t := strings.Replace(term, word, typo, 1)
				if !seen[strings.ToLower(t)] {
					seen[strings.ToLower(t)] = true
					variations = append(variations, t)
				}
			}
		}
	}
	return variations
}

// ExpandAll expands every term and flattens the result without
// duplicates.
func (e *Expander) ExpandAll(terms []string) []string {
	var all []string
	seen := map[string]bool{}
	for _, term := range terms {
		for _, v := range e.Expand(term) {
			if !seen[strings.ToLower(v)] {
				seen[strings.ToLower(v)] = true
				all = append(all, v)
			}
		}
	}
	return all
}
