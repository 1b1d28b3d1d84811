package identify

import (
	"strings"
)

// Phrases that mark a post as seeking an item rather than selling one.
var wantedPhrases = []string{
	"looking for", "looking to buy", "in search of",
	"want to buy", "searching for", "need a",
	"anyone have", "anyone selling", "does anyone",
	"in need of", "trying to find", "hoping to find",
}

// Single-word markers, matched on word boundaries so that e.g.
// "isolation" does not trip the "iso" check.
var wantedWords = []string{"iso", "wtb", "wanted", "seeking"}

// isWantedPost reports whether any text field marks the listing as a
// buy request.
func isWantedPost(title, description, imageDesc string) (bool, string) {
	fields := []struct{ name, text string }{
		{"title", title},
		{"description", description},
		{"image", imageDesc},
	}
	for _, f := range fields {
		lower := strings.ToLower(f.text)
		for _, p := range wantedPhrases {
			if strings.Contains(lower, p) {
				return true, f.name + " contains " + strconvQuote(p)
			}
		}
		for _, w := range strings.Fields(lower) {
			w = strings.Trim(w, ".,!?:;()[]\"'")
			for _, kw := range wantedWords {
				if w == kw {
					return true, f.name + " contains " + strconvQuote(kw)
				}
			}
		}
	}
	return false, ""
}

func strconvQuote(s string) string { return "\"" + s + "\"" }

// placeholderWords are model outputs that look like terms but carry no
// product identity. A synthesized term containing one is worthless.
var placeholderWords = []string{"unknown", "unidentified", "generic", "unbranded", "n/a", "none"}

// sanitizeTerm cleans a synthesis response. Returns "" for
// CANNOT_IDENTIFY and for placeholder answers.
func sanitizeTerm(resp string) string {
	term := strings.TrimSpace(resp)
	if after, ok := strings.CutPrefix(term, "SEARCH TERM:"); ok {
		term = strings.TrimSpace(after)
	}
	if term == "" || strings.EqualFold(term, "CANNOT_IDENTIFY") {
		return ""
	}
	lower := strings.ToLower(term)
	for _, bad := range placeholderWords {
		if strings.Contains(lower, bad) {
			return ""
		}
	}
	return term
}

// parseSpecificity reads a yes/no verdict out of loosely formatted model
// text. Accepted shapes:
//
//	SPECIFIC: YES
//	YES            (bare, first line)
//	REASON: ...
//	<second line taken as the reason when unprefixed>
//
// Anything unparseable reads as NO.
func parseSpecificity(resp string) (bool, string) {
	specific := false
	reasoning := ""
	lines := strings.Split(strings.TrimSpace(resp), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "SPECIFIC:"):
			val := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			specific = isAffirmative(val)
		case i == 0 && (upper == "YES" || upper == "NO" || upper == "TRUE" || upper == "FALSE"):
			specific = upper == "YES" || upper == "TRUE"
		case strings.HasPrefix(upper, "REASON:"):
			reasoning = strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
		case i == 1 && reasoning == "" &&
			!strings.HasPrefix(upper, "YES") && !strings.HasPrefix(upper, "NO") &&
			!strings.HasPrefix(upper, "SPECIFIC"):
			reasoning = line
		}
	}
	return specific, reasoning
}

// parseMultiItem reads a MULTI_ITEM verdict and the item list. List
// markers (bullets, numbering) are stripped from item lines.
func parseMultiItem(resp string) (bool, []string) {
	isMulti := false
	var items []string
	inItems := false
	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "MULTI_ITEM:"):
			val := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			isMulti = isAffirmative(val)
		case strings.HasPrefix(upper, "ITEMS:"):
			inItems = true
			rest := strings.TrimSpace(strings.SplitN(line, ":", 2)[1])
			if rest != "" && rest != "-" && rest != "N/A" {
				items = append(items, rest)
			}
		case inItems && line != "" &&
			!strings.HasPrefix(upper, "MULTI") && !strings.HasPrefix(upper, "SINGLE"):
			if clean := strings.TrimLeft(line, "•-*0123456789. "); clean != "" {
				items = append(items, clean)
			}
		}
	}
	return isMulti, items
}

func isAffirmative(val string) bool {
	switch strings.ToUpper(val) {
	case "YES", "TRUE", "1":
		return true
	}
	return false
}
