package pricing

import (
	"context"
	"log"
)

// CompositeSource tries sources in order and returns the first
// non-empty result set. Used for the "both" price-source setting.
type CompositeSource struct {
	sources []Source
}

func NewCompositeSource(sources ...Source) *CompositeSource {
	return &CompositeSource{sources: sources}
}

func (c *CompositeSource) Name() string {
	if len(c.sources) == 1 {
		return c.sources[0].Name()
	}
	return "composite"
}

func (c *CompositeSource) Search(ctx context.Context, query, condition string, limit int) ([]ComparableSample, error) {
	var lastErr error
	for _, s := range c.sources {
		samples, err := s.Search(ctx, query, condition, limit)
		if err != nil {
			log.Printf("pricing: source %s failed for %q: %v", s.Name(), query, err)
			lastErr = err
			continue
		}
		if len(samples) > 0 {
			return samples, nil
		}
	}
	return nil, lastErr
}
