// Package iconcollector extracts the icons of an Icons8 collection by
// driving a real Chrome browser over the Chrome DevTools Protocol.
//
// The collection page is rendered client-side and loads icons lazily, so a
// run goes through four steps on a single browser tab:
//
//   - detect whether the stored browser profile is already logged in
//   - log in with the supplied credentials when it is not
//   - scroll until the number of rendered icons stops growing
//   - read the icon identifiers from the page
//
// # Collecting
//
// For one-off runs use the package-level helper:
//
//	res, err := iconcollector.ExtractCollection(ctx, iconcollector.CollectionRequest{
//	    URL:      "https://icons8.com/icons/collections/abc123",
//	    Size:     256,
//	    Headless: true,
//	})
//
// A [Collector] keeps its configuration between runs:
//
//	c := iconcollector.NewCollector(
//	    iconcollector.WithProfileDir(".browser_data"),
//	    iconcollector.WithLogger(logger),
//	)
//	defer c.Close()
//
//	res, err := c.ExtractCollection(ctx, req)
//
// The error return only reports misuse. Everything that can go wrong on the
// web page is reported by [Result.Outcome]:
//
//	switch res.Outcome {
//	case iconcollector.OutcomeSuccess:
//	    for _, icon := range res.Records {
//	        fmt.Println(icon.Name, icon.URL)
//	    }
//	case iconcollector.OutcomeAuthRequired:
//	    // supply Credentials, or log in once with a visible browser
//	}
//
// # Saved pages
//
// A collection page saved from a browser can be processed without
// launching one:
//
//	res, err := iconcollector.ExtractHTML(ctx, markup, 128, nil)
//
// Chrome or Chromium must be installed, or use [WithAutoDownload].
package iconcollector
