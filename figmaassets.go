package figmaassets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hellenic-development/figma-assets/pkg/figma"
	"github.com/hellenic-development/figma-assets/pkg/imager"
	"github.com/hellenic-development/figma-assets/pkg/locator"
)

// Usage errors. These are returned, never logged away.
var (
	ErrNoClient       = errors.New("need to create a Figma client first")
	ErrMissingToken   = errors.New("missing Figma access token")
	ErrMissingFileKey = errors.New("missing Figma file key")
	ErrMissingPage    = errors.New("missing page name")
	ErrInvalidFormat  = errors.New("invalid image format")
	ErrInvalidScale   = errors.New("scale must be a positive finite number")
)

// Formats lists the image formats the render API accepts.
var Formats = []string{"svg", "png", "jpg", "pdf"}

const (
	DefaultFormat     = "svg"
	DefaultScale      = 1.0
	DefaultAssetsPath = "assets"
)

// Options configures an export run. It is copied into the Exporter and never changes afterwards.
type Options struct {
	AccessToken string
	FileKey     string // file key, or a Figma file URL
	PageName    string
	FrameName   string // optional; unknown frames fall back to the whole page
	AssetsPath  string
	Format      string  // "svg" (default), "png", "jpg", "pdf"
	Scale       float64 // zero means DefaultScale
	BaseURL     string  // empty = figma.DefaultBaseURL
	Timeout     time.Duration
	Logger      Logger // nil = no logging
}

// Logger receives progress messages. A nil Logger means silent operation.
// *logrus.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

func (o *Options) applyDefaults() {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.AssetsPath == "" {
		o.AssetsPath = DefaultAssetsPath
	}
	o.Format = strings.ToLower(o.Format)
}

// Validate reports the first usage error in o. Defaults are not applied. The page
// name is checked only by the operations that need it, so an Exporter without one
// can still list pages.
func (o Options) Validate() error {
	if o.AccessToken == "" {
		return ErrMissingToken
	}
	if o.FileKey == "" {
		return ErrMissingFileKey
	}
	if !ValidFormat(o.Format) {
		return fmt.Errorf("%w %q (must be one of %s)", ErrInvalidFormat, o.Format, strings.Join(Formats, ", "))
	}
	if !ValidScale(o.Scale) {
		return fmt.Errorf("%w, got %g", ErrInvalidScale, o.Scale)
	}
	return nil
}

// ValidScale reports whether scale is a usable render scale: positive and finite.
func ValidScale(scale float64) bool {
	return scale > 0 && !math.IsInf(scale, 1)
}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Exporter locates, resolves and saves the assets of one Figma page.
type Exporter struct {
	opts    Options
	fileKey string
	client  *figma.Client
}

// New validates opts, applies defaults and creates the authenticated client.
func New(opts Options) (*Exporter, error) {
	opts.applyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	fileKey, err := figma.ResolveFileKey(opts.FileKey)
	if err != nil {
		return nil, fmt.Errorf("extract file key: %w", err)
	}

	client := figma.NewClient(opts.AccessToken,
		figma.WithBaseURL(opts.BaseURL),
		figma.WithTimeout(opts.Timeout),
	)

	return &Exporter{opts: opts, fileKey: fileKey, client: client}, nil
}

// Options returns the effective options, defaults applied.
func (e *Exporter) Options() Options {
	return e.opts
}

// FileKey returns the resolved Figma file key.
func (e *Exporter) FileKey() string {
	return e.fileKey
}

func (e *Exporter) ready() error {
	if e == nil || e.client == nil {
		return ErrNoClient
	}
	return nil
}

func (e *Exporter) readyToLocate() error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.opts.PageName == "" {
		return ErrMissingPage
	}
	return nil
}

// Locate fetches the file document and returns the assets of the configured page
// (and frame) as a typed lookup. ids is forwarded to the file request but does not
// filter the result.
func (e *Exporter) Locate(ctx context.Context, ids []string) locator.Lookup {
	if err := e.readyToLocate(); err != nil {
		return locator.Failed(err)
	}

	// TODO: decide whether ids should also filter the flattened assets; today it only narrows the file request.
	e.opts.logInfo("Fetching file %s...", e.fileKey)
	file, err := e.client.GetFile(ctx, e.fileKey, ids)
	if err != nil {
		return locator.Failed(fmt.Errorf("fetch file: %w", err))
	}
	e.opts.logInfo("File: %s", file.Name)

	return locator.Locate(file, e.opts.PageName, e.opts.FrameName)
}

// GetAssets returns the assets of the configured page. Lookup failures (missing page,
// network or API errors) are logged and produce an empty slice with a nil error; only
// usage errors are returned.
func (e *Exporter) GetAssets(ctx context.Context, ids []string) ([]locator.Asset, error) {
	if err := e.readyToLocate(); err != nil {
		return nil, err
	}

	lookup := e.Locate(ctx, ids)
	e.logLookup(lookup)

	return lookup.Assets, nil
}

func (e *Exporter) logLookup(lookup locator.Lookup) {
	switch lookup.Status {
	case locator.StatusError:
		e.opts.logError("Cannot locate assets: %v", lookup.Err)
	case locator.StatusEmpty:
		e.opts.logWarn("No assets found on page %q", e.opts.PageName)
	default:
		e.opts.logInfo("Found %d asset(s) on page %q", len(lookup.Assets), e.opts.PageName)
	}
}

// ExportAssets asks the render API for image URLs of assets. The result has one entry
// per asset in the same order; a failed request is logged and yields an empty slice.
func (e *Exporter) ExportAssets(ctx context.Context, assets []locator.Asset) ([]imager.ExportResult, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	e.opts.logInfo("Requesting %s renders at scale %g for %d asset(s)...", e.opts.Format, e.opts.Scale, len(assets))
	results, err := imager.Resolve(ctx, e.client, e.fileKey, assets, e.opts.Format, e.opts.Scale)
	if err != nil {
		e.opts.logError("%v", err)
		return []imager.ExportResult{}, nil
	}

	for _, r := range results {
		if r.ImageURL == "" {
			e.opts.logWarn("No image URL returned for %s (%s)", r.Name, r.ID)
		}
	}

	return results, nil
}

// SaveAssets downloads every result into the assets directory concurrently and waits
// for all of them. Per-asset failures are in the report and never abort siblings.
func (e *Exporter) SaveAssets(ctx context.Context, results []imager.ExportResult) (*imager.SaveReport, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	e.opts.logInfo("Saving %d asset(s) to %s...", len(results), e.opts.AssetsPath)
	report := imager.SaveAll(ctx, e.client, e.opts.AssetsPath, results)

	for _, o := range report.Failed() {
		e.opts.logWarn("%v", o.Err)
	}
	e.opts.logInfo("Saved %d of %d asset(s)", len(report.Saved()), len(report.Outcomes))

	return report, nil
}

// Pages lists the names of the file's top-level pages. Unlike Locate, errors are returned.
func (e *Exporter) Pages(ctx context.Context) ([]string, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	file, err := e.client.GetFile(ctx, e.fileKey, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}

	return locator.PageNames(file), nil
}

// Result contains the output of Run.
type Result struct {
	Options Options
	FileKey string
	Lookup  locator.Lookup
	Exports []imager.ExportResult
	Report  *imager.SaveReport
}

// Run executes locate, resolve and save in sequence. A failed lookup or render request
// ends the run early with an empty report; per-asset failures are in Result.Report.
func Run(ctx context.Context, opts Options, ids []string) (*Result, error) {
	e, err := New(opts)
	if err != nil {
		return nil, err
	}
	if err := e.readyToLocate(); err != nil {
		return nil, err
	}

	result := &Result{Options: e.Options(), FileKey: e.fileKey, Report: &imager.SaveReport{}}

	result.Lookup = e.Locate(ctx, ids)
	e.logLookup(result.Lookup)
	if result.Lookup.Status != locator.StatusOK {
		result.Exports = []imager.ExportResult{}
		return result, nil
	}

	if result.Exports, err = e.ExportAssets(ctx, result.Lookup.Assets); err != nil {
		return nil, err
	}

	if result.Report, err = e.SaveAssets(ctx, result.Exports); err != nil {
		return nil, err
	}

	return result, nil
}
