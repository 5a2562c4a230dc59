// Package figmaassets downloads the icons and images of a Figma page to local disk.
//
// An export run has three steps, each a method on [Exporter]:
//
//   - [Exporter.GetAssets] fetches the file document, finds the page (and
//     optionally a frame on it) and flattens its nodes into {id, name} pairs.
//   - [Exporter.ExportAssets] asks the render API for image URLs of those ids
//     in the configured format and scale.
//   - [Exporter.SaveAssets] streams every image to <AssetsPath>/<name>.<format>,
//     all downloads running at once.
//
// [Run] chains the three.
//
// # Import
//
// The module path contains a hyphen but Go package names cannot, so the
// package is named figmaassets:
//
//	import "github.com/hellenic-development/figma-assets" // package figmaassets
//
// # Quick start
//
//	exporter, err := figmaassets.New(figmaassets.Options{
//	    AccessToken: os.Getenv("FIGMA_TOKEN"),
//	    FileKey:     "mgKaQN0rrDKx9FrfbtNJE0",
//	    PageName:    "All icons",
//	    AssetsPath:  "assets/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	assets, _ := exporter.GetAssets(ctx, nil)
//	results, _ := exporter.ExportAssets(ctx, assets)
//	report, _ := exporter.SaveAssets(ctx, results)
//	for _, failed := range report.Failed() {
//	    log.Printf("%s: %v", failed.Name, failed.Err)
//	}
//
// # Failure handling
//
// Lookup failures (unknown page, network or API errors while fetching the
// document or the image URLs) are logged and turn into empty results, so a
// run without matches simply saves nothing. Use [Exporter.Locate] to get the
// typed [locator.Lookup] instead. Errors returned from the methods are usage
// errors such as [ErrNoClient] or [ErrMissingPage]. Each asset that fails to
// save is reported individually in the [imager.SaveReport].
//
// # Logging
//
// Pass a [Logger] implementation in [Options.Logger] to receive progress
// messages. A nil Logger silences all output. *logrus.Logger satisfies the
// interface as is.
package figmaassets
