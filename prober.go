package iconcollector

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// probeSession reports whether the loaded page already shows collection
// icons, which only happens for an authenticated viewer. It never acts on
// the page. The count is polled for up to budget since icons render
// asynchronously after navigation.
func probeSession(ctx context.Context, doc Document, clk clock, interval, budget time.Duration, logger arbor.ILogger) bool {
	var visible int
	ok, err := poll(ctx, clk, interval, budget, func(ctx context.Context) (bool, error) {
		n, err := doc.Count(ctx, probeSelector)
		if err != nil {
			return false, err
		}
		visible = n
		return n > 0, nil
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Icon probe did not complete cleanly")
	}
	logger.Info().Int("icons_visible", visible).Msg("Probed collection page for an existing session")
	return ok
}
