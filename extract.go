package iconcollector

import (
	"context"
	"fmt"
	"regexp"

	"github.com/ternarybob/arbor"
)

// Strategy names the extraction path that produced a result.
type Strategy int

const (
	// StrategyNone means no strategy found any icon.
	StrategyNone Strategy = iota
	// StrategyPrimary reads grid icon elements.
	StrategyPrimary
	// StrategySecondary reads any image negotiated from the image host.
	StrategySecondary
	// StrategyRegex scans raw page markup for image-host URLs.
	StrategyRegex
)

func (s Strategy) String() string {
	switch s {
	case StrategyPrimary:
		return "primary"
	case StrategySecondary:
		return "secondary"
	case StrategyRegex:
		return "regex"
	}
	return "none"
}

// MarshalText implements [encoding.TextMarshaler].
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var markupIDPattern = regexp.MustCompile(`img\.icons8\.com/?\?[^"'>\s]*id=([A-Za-z0-9_-]+)[^"'>\s]*`)

// extractor turns a rendered page into icon records.
type extractor struct {
	size   int
	logger arbor.ILogger
}

// extract tries the DOM strategies in order and falls back to scanning
// the markup when neither selector matches any element. A strategy is
// chosen by element matches, not by records produced: once a selector
// matches, later strategies do not run.
func (e *extractor) extract(ctx context.Context, doc Document) ([]IconRecord, Strategy, error) {
	seen := newSeenSet(e.size)

	domStrategies := []struct {
		strategy Strategy
		selector string
	}{
		{StrategyPrimary, gridImageSelector},
		{StrategySecondary, hostImageSelector},
	}
	for _, ds := range domStrategies {
		n, err := doc.Count(ctx, ds.selector)
		if err != nil {
			if ctx.Err() != nil {
				return nil, StrategyNone, ctx.Err()
			}
			e.logger.Warn().Err(err).Str("selector", ds.selector).Msg("Counting icon elements failed")
			continue
		}
		if n == 0 {
			e.logger.Info().Str("strategy", ds.strategy.String()).Msg("No icon elements matched")
			continue
		}
		e.logger.Info().Int("elements", n).Str("strategy", ds.strategy.String()).Msg("Extracting icons from page")
		if err := e.fromElements(ctx, doc, ds.selector, n, seen); err != nil {
			return seen.records, ds.strategy, err
		}
		return seen.records, ds.strategy, nil
	}

	e.logger.Info().Msg("Trying regex extraction from page content")
	content, err := doc.Content(ctx)
	if err != nil {
		return nil, StrategyNone, fmt.Errorf("iconcollector: reading page content: %w", err)
	}
	e.fromMarkup(content, seen)
	if seen.len() == 0 {
		return seen.records, StrategyNone, nil
	}
	return seen.records, StrategyRegex, nil
}

// fromElements reads n elements matching selector. A failure on one
// element is logged and skips that element only.
func (e *extractor) fromElements(ctx context.Context, doc Document, selector string, n int, seen *seenSet) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		id, name, err := e.element(ctx, doc, selector, i)
		if err != nil {
			e.logger.Warn().Err(err).Int("index", i).Msg("Skipping icon element")
			continue
		}
		if id == "" {
			continue
		}
		if seen.add(id, name) {
			e.logger.Debug().Str("name", name).Str("id", id).Msg("Found icon")
		}
	}
	return nil
}

func (e *extractor) element(ctx context.Context, doc Document, selector string, i int) (id, name string, err error) {
	srcset, ok, err := doc.Attr(ctx, selector, i, "srcset")
	if err != nil {
		return "", "", fmt.Errorf("reading srcset: %w", err)
	}
	if !ok || srcset == "" {
		return "", "", nil
	}
	id, ok = iconID(srcset)
	if !ok {
		return "", "", nil
	}
	alt, _, err := doc.Attr(ctx, selector, i, "alt")
	if err != nil {
		return "", "", fmt.Errorf("reading alt: %w", err)
	}
	return id, labelName(alt, i), nil
}

// fromMarkup collects identifiers from image-host URLs in raw markup.
func (e *extractor) fromMarkup(content string, seen *seenSet) {
	matches := markupIDPattern.FindAllStringSubmatch(content, -1)
	e.logger.Info().Int("matches", len(matches)).Msg("Found icon IDs via regex")
	for _, m := range matches {
		seen.add(m[1], markupName(m[1]))
	}
}
