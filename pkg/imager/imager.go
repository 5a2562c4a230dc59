package imager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hellenic-development/figma-assets/pkg/figma"
	"github.com/hellenic-development/figma-assets/pkg/locator"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrMissingImageURL marks an asset the render API returned no URL for.
	ErrMissingImageURL = errors.New("no image URL returned")
	// ErrUnsafeName marks an asset whose name would place the file outside the assets directory.
	ErrUnsafeName = errors.New("asset name escapes the assets directory")
)

// ExportResult pairs a destination file stem with a short-lived rendered image URL.
// An empty ImageURL means the render API had no URL for the asset.
type ExportResult struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Format   string `json:"format"`
	ImageURL string `json:"image,omitempty"`
}

// Renderer asks Figma to render nodes. *figma.Client implements it.
type Renderer interface {
	GetImages(ctx context.Context, fileKey string, ids []string, format string, scale float64) (*figma.ImagesResponse, error)
}

// Downloader opens rendered image URLs. *figma.Client implements it.
type Downloader interface {
	Download(ctx context.Context, imageURL string) (io.ReadCloser, error)
}

// Resolve requests image URLs for all assets in a single render call and maps them
// back onto the assets in input order.
func Resolve(ctx context.Context, r Renderer, fileKey string, assets []locator.Asset, format string, scale float64) ([]ExportResult, error) {
	ids := make([]string, 0, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
	}

	imgResp, err := r.GetImages(ctx, fileKey, ids, format, scale)
	if err != nil {
		return nil, fmt.Errorf("failed to get images from Figma API: %w", err)
	}

	return BuildResults(assets, imgResp.Images, format), nil
}

// BuildResults looks every asset up in images. The output always has one entry per
// asset, in the same order; ids missing from images get an empty ImageURL.
func BuildResults(assets []locator.Asset, images map[string]string, format string) []ExportResult {
	results := make([]ExportResult, 0, len(assets))
	for _, a := range assets {
		results = append(results, ExportResult{
			ID:       a.ID,
			Name:     a.Name,
			Format:   format,
			ImageURL: images[a.ID],
		})
	}
	return results
}

// DestinationPath is where an export result is written: <assetsPath>/<name>.<format>.
// Slashes in the name create sub-directories.
func DestinationPath(assetsPath string, r ExportResult) string {
	return filepath.Join(assetsPath, r.Name+"."+r.Format)
}

// SafeName reports whether r lands inside the assets directory: the file name must
// be relative and free of ".." segments that climb out of it.
func SafeName(r ExportResult) bool {
	return filepath.IsLocal(filepath.FromSlash(r.Name + "." + r.Format))
}

// AssetError reports why a single asset could not be saved.
type AssetError struct {
	Name string
	Path string
	Err  error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("failed to save %s to %s: %v", e.Name, e.Path, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// SaveOutcome is the settled state of one asset.
type SaveOutcome struct {
	Name  string
	Path  string
	Bytes int64
	Err   error // nil on success; an *AssetError otherwise
}

// OK reports whether the asset was written.
func (o SaveOutcome) OK() bool {
	return o.Err == nil
}

// SaveReport holds one outcome per export result, in input order.
type SaveReport struct {
	Outcomes []SaveOutcome
}

// Saved returns the outcomes that succeeded.
func (r *SaveReport) Saved() []SaveOutcome {
	return r.filter(true)
}

// Failed returns the outcomes that failed.
func (r *SaveReport) Failed() []SaveOutcome {
	return r.filter(false)
}

// Err joins every per-asset failure, or returns nil when all assets were saved.
func (r *SaveReport) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}

func (r *SaveReport) filter(ok bool) []SaveOutcome {
	var out []SaveOutcome
	for _, o := range r.Outcomes {
		if o.OK() == ok {
			out = append(out, o)
		}
	}
	return out
}

// SaveAll downloads every result concurrently, one goroutine per asset, and returns
// once all of them have settled. A failing asset never stops its siblings.
func SaveAll(ctx context.Context, d Downloader, assetsPath string, results []ExportResult) *SaveReport {
	report := &SaveReport{Outcomes: make([]SaveOutcome, len(results))}
	locks := &pathLocks{}

	var g errgroup.Group
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			path := DestinationPath(assetsPath, r)
			if !SafeName(r) {
				report.Outcomes[i] = SaveOutcome{Name: r.Name, Path: path, Err: &AssetError{Name: r.Name, Path: path, Err: ErrUnsafeName}}
				return nil
			}

			unlock := locks.lock(path)
			n, err := Save(ctx, d, path, r)
			unlock()

			report.Outcomes[i] = SaveOutcome{Name: r.Name, Path: path, Bytes: n, Err: err}
			// Per-asset failures live in the report.
			return nil
		})
	}
	g.Wait()

	return report
}

// Save streams one rendered image into path, creating parent directories and
// overwriting any existing file. On failure the partial file is removed.
func Save(ctx context.Context, d Downloader, path string, r ExportResult) (int64, error) {
	fail := func(err error) (int64, error) {
		return 0, &AssetError{Name: r.Name, Path: path, Err: err}
	}

	if r.ImageURL == "" {
		return fail(ErrMissingImageURL)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fail(fmt.Errorf("failed to create directory: %w", err))
	}

	body, err := d.Download(ctx, r.ImageURL)
	if err != nil {
		return fail(err)
	}
	defer body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fail(fmt.Errorf("failed to create file: %w", err))
	}

	n, err := io.Copy(f, body)
	if err != nil {
		f.Close()
		os.Remove(path)
		return fail(fmt.Errorf("failed to write file: %w", err))
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fail(fmt.Errorf("failed to close file: %w", err))
	}

	return n, nil
}

// pathLocks serializes writers that target the same destination, which happens
// when two nodes share a name.
type pathLocks struct {
	m sync.Map // path -> *sync.Mutex
}

func (p *pathLocks) lock(path string) func() {
	v, _ := p.m.LoadOrStore(path, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
