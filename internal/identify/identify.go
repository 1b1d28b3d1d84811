// Package identify turns raw marketplace listings into resale search
// terms through a cascade of identification attempts. Each tier is
// checked for specificity before it is accepted; a listing whose every
// tier fails the check is dropped rather than searched with a vague term.
package identify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flipscan/internal/llm"
)

// Term sources, in cascade order.
const (
	SourceImage     = "image"
	SourceText      = "title+description"
	SourceTextImage = "title+description+image"
	SourceDropped   = "dropped"
)

// Result is the identification outcome for a single item. An empty
// SearchTerm means the item was dropped. Raw keeps the intermediate
// model outputs keyed by cascade stage so a drop can be audited later.
type Result struct {
	SearchTerm string
	Source     string
	Reasoning  string
	Raw        map[string]string
}

func (r Result) Dropped() bool { return r.SearchTerm == "" }

// MultiResult is the outcome for a whole listing, which may decompose
// into several items.
type MultiResult struct {
	Items         []Result
	IsMultiItem   bool
	OriginalTitle string
}

// ValidItems returns the items that were not dropped.
func (m MultiResult) ValidItems() []Result {
	var out []Result
	for _, it := range m.Items {
		if !it.Dropped() {
			out = append(out, it)
		}
	}
	return out
}

func (m MultiResult) AllDropped() bool { return len(m.ValidItems()) == 0 }

// Generator runs the cascade. The text client evaluates specificity and
// synthesizes terms; the vision client identifies items from photos.
// Vision may be nil, in which case image tiers are skipped.
type Generator struct {
	text   llm.Client
	vision llm.Client
}

func NewGenerator(text, vision llm.Client) *Generator {
	return &Generator{text: text, vision: vision}
}

// GenerateMulti is the listing-level entry point. It identifies the
// image once, rejects want-to-buy posts, decomposes multi-item listings
// and runs the cascade per item. Single items that drop get one retry
// with the image identification folded into the synthesis.
func (g *Generator) GenerateMulti(ctx context.Context, title, description, imageURL string) (MultiResult, error) {
	imageDesc := ""
	if imageURL != "" && g.vision != nil {
		desc, err := g.identifyFromImage(ctx, imageURL, title)
		if err != nil {
			log.Printf("identify: image analysis failed for %q: %v", truncate(title, 40), err)
		} else {
			imageDesc = desc
		}
	}

	if isWanted, reason := isWantedPost(title, description, imageDesc); isWanted {
		return MultiResult{
			Items:         []Result{{Source: SourceDropped, Reasoning: "want-to-buy post: " + reason}},
			OriginalTitle: title,
		}, nil
	}

	isMulti, itemDescs, err := g.decompose(ctx, title, description, imageDesc)
	if err != nil {
		return MultiResult{OriginalTitle: title}, err
	}
	isMulti = isMulti && len(itemDescs) > 1

	results := make([]Result, 0, len(itemDescs))
	for _, itemDesc := range itemDescs {
		// Component items carry their own descriptions; the listing
		// description only applies when the listing is one item.
		desc := description
		if isMulti {
			desc = ""
		}
		res, err := g.generate(ctx, itemDesc, desc, "")
		if err != nil {
			return MultiResult{OriginalTitle: title}, err
		}

		if res.Dropped() && imageDesc != "" && len(itemDescs) == 1 {
			res = g.retryWithImage(ctx, itemDesc, description, imageDesc, res)
		}
		results = append(results, res)
	}

	return MultiResult{Items: results, IsMultiItem: isMulti, OriginalTitle: title}, nil
}

// Generate runs the cascade for a single item.
func (g *Generator) Generate(ctx context.Context, title, description, imageURL string) (Result, error) {
	return g.generate(ctx, title, description, imageURL)
}

func (g *Generator) generate(ctx context.Context, title, description, imageURL string) (Result, error) {
	raw := make(map[string]string)

	// The image is analyzed once; both the first and last tier reuse it.
	ident := ""
	if imageURL != "" && g.vision != nil {
		var err error
		ident, err = g.identifyFromImage(ctx, imageURL, title)
		if err != nil {
			log.Printf("identify: image tier failed for %q: %v", truncate(title, 40), err)
			ident = ""
		}
	}

	// Tier 1: image identification, accepted only if specific.
	if ident != "" {
		raw["image_identification"] = ident
		specific, reasoning, err := g.isSpecific(ctx, ident, "identified from the listing photo")
		if err != nil {
			return Result{}, err
		}
		raw["image_specificity"] = reasoning
		if specific {
			return Result{SearchTerm: ident, Source: SourceImage, Reasoning: reasoning, Raw: raw}, nil
		}
	}

	// Tier 2: synthesize from title and description.
	term, err := g.synthesize(ctx, title, description, "")
	if err != nil {
		return Result{}, err
	}
	if term != "" {
		raw["text_synthesis"] = term
		specific, reasoning, err := g.isSpecific(ctx, term,
			fmt.Sprintf("synthesized from the listing title %q", title))
		if err != nil {
			return Result{}, err
		}
		raw["text_specificity"] = reasoning
		if specific {
			return Result{SearchTerm: term, Source: SourceText, Reasoning: reasoning, Raw: raw}, nil
		}
	}

	// Tier 3: fold the image identification into the synthesis.
	if ident != "" {
		if res := g.retryWithImage(ctx, title, description, ident, Result{Raw: raw}); !res.Dropped() {
			return res, nil
		}
	}

	return Result{
		Source:    SourceDropped,
		Reasoning: "no tier produced a specific enough search term",
		Raw:       raw,
	}, nil
}

func (g *Generator) retryWithImage(ctx context.Context, title, description, imageDesc string, prev Result) Result {
	if prev.Raw == nil {
		prev.Raw = make(map[string]string)
	}
	term, err := g.synthesize(ctx, title, description, imageDesc)
	if err != nil || term == "" {
		return prev.orDropped()
	}
	prev.Raw["text_image_synthesis"] = term
	specific, reasoning, err := g.isSpecific(ctx, term, "synthesized from title, description, and image analysis")
	if err != nil {
		return prev.orDropped()
	}
	prev.Raw["text_image_specificity"] = reasoning
	if !specific {
		return prev.orDropped()
	}
	return Result{SearchTerm: term, Source: SourceTextImage, Reasoning: reasoning, Raw: prev.Raw}
}

func (r Result) orDropped() Result {
	if r.Source == "" {
		r.Source = SourceDropped
		r.Reasoning = "no tier produced a specific enough search term"
	}
	return r
}

func (g *Generator) identifyFromImage(ctx context.Context, imageURL, titleHint string) (string, error) {
	prompt := fmt.Sprintf(imageIdentPrompt, titleHint)
	resp, err := g.vision.GenerateWithImage(ctx, prompt, imageURL)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

// isSpecific asks whether a term names a brand or product line rather
// than a bare category. Malformed responses read as not specific.
func (g *Generator) isSpecific(ctx context.Context, term, context string) (bool, string, error) {
	prompt := fmt.Sprintf(specificityPrompt, term, context)
	resp, err := g.text.Generate(ctx, prompt)
	if err != nil {
		return false, "", err
	}
	specific, reasoning := parseSpecificity(resp)
	return specific, reasoning, nil
}

// synthesize builds a candidate search term. Returns "" when the model
// declares the item unidentifiable or answers with a placeholder.
func (g *Generator) synthesize(ctx context.Context, title, description, imageDesc string) (string, error) {
	var sources []string
	sources = append(sources, "LISTING TITLE: "+title)
	if description != "" {
		sources = append(sources, "DESCRIPTION: "+description)
	}
	if imageDesc != "" {
		sources = append(sources, "IMAGE SHOWS: "+imageDesc)
	}
	prompt := fmt.Sprintf(synthesisPrompt, strings.Join(sources, "\n"))
	resp, err := g.text.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return sanitizeTerm(resp), nil
}

// decompose asks whether the listing bundles several sellable items and
// extracts each one. A listing that does not decompose comes back as a
// single item holding the original title.
func (g *Generator) decompose(ctx context.Context, title, description, imageDesc string) (bool, []string, error) {
	var parts []string
	parts = append(parts, "TITLE: "+title)
	if description != "" {
		parts = append(parts, "DESCRIPTION: "+description)
	}
	if imageDesc != "" {
		parts = append(parts, "IMAGE SHOWS: "+imageDesc)
	}
	prompt := fmt.Sprintf(multiItemPrompt, strings.Join(parts, "\n"))
	resp, err := g.text.Generate(ctx, prompt)
	if err != nil {
		return false, nil, err
	}
	isMulti, items := parseMultiItem(resp)
	if len(items) == 0 {
		items = []string{title}
	}
	return isMulti, items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
