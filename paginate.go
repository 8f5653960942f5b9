package iconcollector

import (
	"context"

	"github.com/ternarybob/arbor"
)

// paginator scrolls a lazy-loading page until the rendered icon count
// stops growing.
type paginator struct {
	page   Page
	clk    clock
	t      timings
	logger arbor.ILogger
}

// countIcons counts grid icons, falling back to any image-host icon when
// the grid selector matches nothing.
func countIcons(ctx context.Context, doc Document) (int, error) {
	n, err := doc.Count(ctx, gridImageSelector)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return n, nil
	}
	return doc.Count(ctx, hostImageSelector)
}

// run returns the number of scrolls performed and the last icon count.
// Exhausting the budget is not an error; only context errors are returned.
func (p *paginator) run(ctx context.Context) (scrolls, count int, err error) {
	prev := 0
	for i := 1; i <= p.t.maxScrolls; i++ {
		if err := p.page.ScrollToBottom(ctx); err != nil {
			if ctx.Err() != nil {
				return i - 1, prev, ctx.Err()
			}
			p.logger.Warn().Err(err).Int("scroll", i).Msg("Scroll failed")
		}
		if err := p.clk.Sleep(ctx, p.t.scrollSettle); err != nil {
			return i, prev, err
		}

		n, err := countIcons(ctx, p.page)
		if err != nil {
			if ctx.Err() != nil {
				return i, prev, ctx.Err()
			}
			p.logger.Warn().Err(err).Int("scroll", i).Msg("Counting icons failed")
			n = 0
		}
		p.logger.Info().Int("scroll", i).Int("icons", n).Msg("Scrolled collection page")

		if n == prev && n > 0 && i >= p.t.minScrolls {
			return i, n, nil
		}
		prev = n
	}
	p.logger.Debug().Int("budget", p.t.maxScrolls).Msg("Scroll budget exhausted")
	return p.t.maxScrolls, prev, nil
}
